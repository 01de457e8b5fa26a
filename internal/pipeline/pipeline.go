// Package pipeline runs one generation: collect files, build the prompt, call the model,
// sanitize the answer, and write it to the output file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/docsmith/internal/collector"
	"github.com/temirov/docsmith/internal/inference"
	"github.com/temirov/docsmith/internal/prompt"
	"github.com/temirov/docsmith/internal/sanitize"
	"github.com/temirov/docsmith/internal/services/clipboard"
	"github.com/temirov/docsmith/internal/tokenizer"
	"github.com/temirov/docsmith/internal/types"
	"github.com/temirov/docsmith/internal/utils"
)

const (
	temporaryOutputPattern = ".docsmith-*.tmp"
	outputFileMode         = 0o644

	errorNoProvider        = "no inference provider configured"
	errorNoFilesFormat     = "no recognized files under %s: %w"
	errorCreateOutputFmt   = "create output next to %s: %v: %w"
	errorWriteOutputFmt    = "write output %s: %v: %w"
	errorEmptyOutputFormat = "model %s returned no text: %w"
	infoCollected          = "collected project files"
	infoPromptTokens       = "prompt size"
	infoGenerating         = "generating document"
	infoWritten            = "wrote document"
	warningTokenCount      = "failed to count prompt tokens"
	warningClipboard       = "failed to copy document to clipboard"
)

// ErrNoProvider reports Options without a Provider.
var ErrNoProvider = errors.New(errorNoProvider)

// Options configures a run.
type Options struct {
	Collector    collector.Options
	DocumentType prompt.DocumentType
	Model        string
	OutputPath   string
	ProjectName  string
	Provider     inference.Provider
	TokenCounter tokenizer.Counter
	Copier       clipboard.Copier
	Logger       *zap.Logger
}

// Result summarizes a successful run.
type Result struct {
	OutputPath   string
	Files        int
	Bytes        int64
	FileTokens   int
	PromptTokens int
	Document     string
}

// Preview collects files and returns the prompt that Run would send. The output file is never
// collected, so a rerun does not feed the previous document back to the model.
func Preview(ctx context.Context, options Options) (string, types.FileMap, error) {
	logger := loggerOrNop(options.Logger)
	options.Collector.Logger = logger
	options.Collector.SkipPaths = append(append([]string{}, options.Collector.SkipPaths...), outputPathOrDefault(options.OutputPath))

	files, collectError := collector.Collect(ctx, options.Collector)
	if collectError != nil {
		return "", nil, collectError
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf(errorNoFilesFormat, rootOrDefault(options.Collector.Root), types.ErrNotFound)
	}
	logger.Info(infoCollected,
		zap.Int("files", len(files)),
		zap.String("size", utils.FormatFileSize(files.TotalBytes())))

	projectName := options.ProjectName
	if projectName == "" {
		projectName = projectNameFromRoot(options.Collector.Root)
	}
	rendered, buildError := prompt.Build(files, options.DocumentType, prompt.Metadata{
		ProjectName: projectName,
		ModulePath:  prompt.ModulePath(files),
	})
	if buildError != nil {
		return "", nil, buildError
	}
	return rendered, files, nil
}

// Run executes the whole pipeline. The output file is written only after every earlier step
// succeeded, and atomically replaces any existing file.
func Run(ctx context.Context, options Options) (Result, error) {
	if options.Provider == nil {
		return Result{}, ErrNoProvider
	}
	logger := loggerOrNop(options.Logger)
	model := options.Model
	if strings.TrimSpace(model) == "" {
		model = inference.DefaultModel
	}
	outputPath := outputPathOrDefault(options.OutputPath)

	renderedPrompt, files, previewError := Preview(ctx, options)
	if previewError != nil {
		return Result{}, previewError
	}

	result := Result{OutputPath: outputPath, Files: len(files), Bytes: files.TotalBytes()}
	if options.TokenCounter != nil {
		countTokens(options.TokenCounter, files, renderedPrompt, &result, logger)
	}

	logger.Info(infoGenerating,
		zap.String("type", options.DocumentType.String()),
		zap.String("model", model),
		zap.String("provider", options.Provider.Name()))
	rawOutput, generateError := options.Provider.Generate(ctx, model, renderedPrompt)
	if generateError != nil {
		return Result{}, generateError
	}

	document := sanitize.StripReasoning(rawOutput)
	if document == "" {
		return Result{}, fmt.Errorf(errorEmptyOutputFormat, model, types.ErrProcessFailure)
	}
	if writeError := WriteOutput(outputPath, document); writeError != nil {
		return Result{}, writeError
	}
	result.Document = document
	logger.Info(infoWritten, zap.String("path", outputPath), zap.String("size", utils.FormatFileSize(int64(len(document)))))

	if options.Copier != nil {
		if copyError := options.Copier.Copy(document); copyError != nil {
			logger.Warn(warningClipboard, zap.Error(copyError))
		}
	}
	return result, nil
}

// WriteOutput writes document to path through a temporary file in the same directory, so a
// failure never leaves a partial file behind. A trailing newline is appended.
func WriteOutput(path string, document string) error {
	directory := filepath.Dir(path)
	temporaryFile, createError := os.CreateTemp(directory, temporaryOutputPattern)
	if createError != nil {
		return fmt.Errorf(errorCreateOutputFmt, path, createError, types.ErrIO)
	}
	temporaryPath := temporaryFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.WriteString(document + "\n"); writeError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf(errorWriteOutputFmt, path, writeError, types.ErrIO)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return fmt.Errorf(errorWriteOutputFmt, path, closeError, types.ErrIO)
	}
	if chmodError := os.Chmod(temporaryPath, outputFileMode); chmodError != nil {
		return fmt.Errorf(errorWriteOutputFmt, path, chmodError, types.ErrIO)
	}
	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		return fmt.Errorf(errorWriteOutputFmt, path, renameError, types.ErrIO)
	}
	committed = true
	return nil
}

func countTokens(counter tokenizer.Counter, files types.FileMap, renderedPrompt string, result *Result, logger *zap.Logger) {
	fileTokens, fileCountError := tokenizer.CountFileMap(counter, files)
	if fileCountError != nil {
		logger.Warn(warningTokenCount, zap.Error(fileCountError))
		return
	}
	promptTokens, promptCountError := counter.CountString(renderedPrompt)
	if promptCountError != nil {
		logger.Warn(warningTokenCount, zap.Error(promptCountError))
		return
	}
	result.FileTokens = fileTokens
	result.PromptTokens = promptTokens
	logger.Info(infoPromptTokens,
		zap.Int("file_tokens", fileTokens),
		zap.Int("prompt_tokens", promptTokens),
		zap.String("tokenizer", counter.Name()))
}

func outputPathOrDefault(outputPath string) string {
	if strings.TrimSpace(outputPath) == "" {
		return utils.DefaultOutputFileName
	}
	return outputPath
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func rootOrDefault(root string) string {
	if root == "" {
		return "."
	}
	return root
}

func projectNameFromRoot(root string) string {
	absoluteRoot, absoluteError := filepath.Abs(rootOrDefault(root))
	if absoluteError != nil {
		return ""
	}
	info, statError := os.Stat(absoluteRoot)
	if statError == nil && !info.IsDir() {
		absoluteRoot = filepath.Dir(absoluteRoot)
	}
	name := filepath.Base(absoluteRoot)
	if name == string(filepath.Separator) || name == "." {
		return ""
	}
	return name
}
