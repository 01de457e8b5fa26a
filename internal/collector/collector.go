// Package collector walks a project tree and gathers the text of recognized files into a FileMap.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/docsmith/internal/config"
	"github.com/temirov/docsmith/internal/types"
	"github.com/temirov/docsmith/internal/utils"
)

// DefaultMaxFileBytes caps the size of a single collected file.
const DefaultMaxFileBytes int64 = 1 << 20

const (
	errorRootMissingFormat  = "root path %s: %w"
	errorRootStatFormat     = "stat root %s: %v: %w"
	errorWalkFormat         = "walk %s: %v: %w"
	errorReadFormat         = "read %s: %v: %w"
	errorEncodingFormat     = "%s: %w"
	errorIgnorePatternsFmt  = "load ignore patterns for %s: %v: %w"
	warningSkipBinary       = "skipping file that is not valid text"
	warningSkipOversized    = "skipping file larger than the size limit"
	debugVisitedFile        = "collected file"
	debugSkippedByExtension = "skipping file outside the extension allow-list"
	debugSkippedPath        = "skipping generated output file"
)

// DefaultExtensions lists the document and source-code extensions collected by default.
// Entries without a leading dot match whole file names.
var DefaultExtensions = []string{
	".md", ".markdown", ".rst", ".txt", ".adoc", ".org", ".tex",
	".go", ".rs", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".kt", ".kts", ".scala",
	".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".swift", ".m", ".rb", ".php", ".pl", ".lua",
	".sh", ".bash", ".zsh", ".ps1", ".sql", ".r", ".jl", ".hs", ".ex", ".exs", ".erl", ".clj",
	".dart", ".vue", ".svelte", ".html", ".css", ".scss",
	".json", ".yaml", ".yml", ".toml", ".ini", ".xml", ".proto", ".graphql",
	".mod", ".gradle", ".cmake",
	"Makefile", "Dockerfile", "Justfile",
}

// Options configures a traversal.
type Options struct {
	Root              string
	Extensions        []string
	AllFiles          bool
	Strict            bool
	MaxFileBytes      int64
	ExclusionPatterns []string
	UseGitignore      bool
	UseIgnoreFile     bool
	IncludeGit        bool
	// SkipPaths lists files that are never collected, such as the document being generated.
	SkipPaths   []string
	Concurrency int
	Logger      *zap.Logger
}

type candidateFile struct {
	absolutePath string
	relativePath string
}

// Collect walks options.Root and returns its recognized text files sorted by relative path.
// A missing root fails with types.ErrNotFound and any read failure with types.ErrIO. Files that are
// not valid text are skipped with a warning, or abort with types.ErrInvalidEncoding when
// options.Strict is set.
func Collect(ctx context.Context, options Options) (types.FileMap, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rootPath, rootInfo, rootError := resolveRoot(options.Root)
	if rootError != nil {
		return nil, rootError
	}

	var candidates []candidateFile
	if rootInfo.IsDir() {
		discovered, discoverError := discoverCandidates(rootPath, options, logger)
		if discoverError != nil {
			return nil, discoverError
		}
		candidates = discovered
	} else {
		candidates = []candidateFile{{absolutePath: rootPath, relativePath: filepath.Base(rootPath)}}
	}

	fileMap, readError := readCandidates(ctx, candidates, options, logger)
	if readError != nil {
		return nil, readError
	}
	fileMap.Sort()
	return fileMap, nil
}

func resolveRoot(root string) (string, os.FileInfo, error) {
	if root == "" {
		root = "."
	}
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return "", nil, fmt.Errorf(errorRootStatFormat, root, absoluteError, types.ErrIO)
	}
	cleanRoot := filepath.Clean(absoluteRoot)
	rootInfo, statError := os.Stat(cleanRoot)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return "", nil, fmt.Errorf(errorRootMissingFormat, root, types.ErrNotFound)
		}
		return "", nil, fmt.Errorf(errorRootStatFormat, root, statError, types.ErrIO)
	}
	return cleanRoot, rootInfo, nil
}

func discoverCandidates(rootPath string, options Options, logger *zap.Logger) ([]candidateFile, error) {
	ignorePatterns, patternError := config.LoadRecursiveIgnorePatterns(rootPath, config.IgnoreOptions{
		ExclusionPatterns: options.ExclusionPatterns,
		UseGitignore:      options.UseGitignore,
		UseIgnoreFile:     options.UseIgnoreFile,
		IncludeGit:        options.IncludeGit,
	})
	if patternError != nil {
		return nil, fmt.Errorf(errorIgnorePatternsFmt, rootPath, patternError, types.ErrIO)
	}
	allowList := newExtensionAllowList(options.Extensions)
	skippedPaths := make(map[string]struct{}, len(options.SkipPaths))
	for _, skippedPath := range options.SkipPaths {
		if absolutePath, absoluteError := filepath.Abs(skippedPath); absoluteError == nil {
			skippedPaths[filepath.Clean(absolutePath)] = struct{}{}
		}
	}

	var candidates []candidateFile
	walkError := filepath.WalkDir(rootPath, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if accessError != nil {
			return accessError
		}
		relativePath := utils.RelativePathOrSelf(walkedPath, rootPath)
		if relativePath == "." {
			return nil
		}
		if directoryEntry.IsDir() {
			if config.IsVersionControlDirectory(directoryEntry.Name(), options.IncludeGit) {
				return filepath.SkipDir
			}
			if utils.ShouldIgnoreByPath(relativePath, true, ignorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if !directoryEntry.Type().IsRegular() {
			return nil
		}
		if utils.IsServiceFile(directoryEntry.Name()) || utils.ShouldIgnoreByPath(relativePath, false, ignorePatterns) {
			return nil
		}
		if _, skipped := skippedPaths[walkedPath]; skipped {
			logger.Debug(debugSkippedPath, zap.String("path", relativePath))
			return nil
		}
		if !options.AllFiles && !allowList.allows(directoryEntry.Name()) {
			logger.Debug(debugSkippedByExtension, zap.String("path", relativePath))
			return nil
		}
		candidates = append(candidates, candidateFile{absolutePath: walkedPath, relativePath: relativePath})
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(errorWalkFormat, rootPath, walkError, types.ErrIO)
	}
	return candidates, nil
}

func readCandidates(ctx context.Context, candidates []candidateFile, options Options, logger *zap.Logger) (types.FileMap, error) {
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	maxFileBytes := options.MaxFileBytes
	if maxFileBytes < 0 {
		maxFileBytes = 0
	}

	entries := make([]*types.FileEntry, len(candidates))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for candidateIndex, candidate := range candidates {
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			entry, readError := readCandidate(candidate, options.Strict, maxFileBytes, logger)
			if readError != nil {
				return readError
			}
			entries[candidateIndex] = entry
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}

	fileMap := make(types.FileMap, 0, len(entries))
	for _, entry := range entries {
		if entry != nil {
			fileMap = append(fileMap, *entry)
		}
	}
	return fileMap, nil
}

// readCandidate returns nil without error when the file is skipped.
//
// #nosec G304
func readCandidate(candidate candidateFile, strict bool, maxFileBytes int64, logger *zap.Logger) (*types.FileEntry, error) {
	if maxFileBytes > 0 {
		fileInfo, statError := os.Stat(candidate.absolutePath)
		if statError != nil {
			return nil, fmt.Errorf(errorReadFormat, candidate.relativePath, statError, types.ErrIO)
		}
		if fileInfo.Size() > maxFileBytes {
			logger.Warn(warningSkipOversized,
				zap.String("path", candidate.relativePath),
				zap.String("size", utils.FormatFileSize(fileInfo.Size())))
			return nil, nil
		}
	}

	fileBytes, readError := os.ReadFile(candidate.absolutePath)
	if readError != nil {
		return nil, fmt.Errorf(errorReadFormat, candidate.relativePath, readError, types.ErrIO)
	}
	if utils.IsBinary(fileBytes) {
		if strict {
			return nil, fmt.Errorf(errorEncodingFormat, candidate.relativePath, types.ErrInvalidEncoding)
		}
		logger.Warn(warningSkipBinary, zap.String("path", candidate.relativePath))
		return nil, nil
	}

	logger.Debug(debugVisitedFile,
		zap.String("path", candidate.relativePath),
		zap.String("size", utils.FormatFileSize(int64(len(fileBytes)))))
	return &types.FileEntry{
		Path:      candidate.relativePath,
		Content:   string(fileBytes),
		SizeBytes: int64(len(fileBytes)),
	}, nil
}

type extensionAllowList struct {
	extensions map[string]struct{}
	fileNames  map[string]struct{}
}

func newExtensionAllowList(configured []string) extensionAllowList {
	if len(configured) == 0 {
		configured = DefaultExtensions
	}
	allowList := extensionAllowList{
		extensions: make(map[string]struct{}, len(configured)),
		fileNames:  make(map[string]struct{}),
	}
	for _, value := range configured {
		trimmedValue := strings.TrimSpace(value)
		switch {
		case trimmedValue == "":
		case strings.HasPrefix(trimmedValue, "."):
			allowList.extensions[strings.ToLower(trimmedValue)] = struct{}{}
		case strings.HasPrefix(trimmedValue, "*."):
			allowList.extensions[strings.ToLower(strings.TrimPrefix(trimmedValue, "*"))] = struct{}{}
		default:
			allowList.fileNames[trimmedValue] = struct{}{}
		}
	}
	return allowList
}

func (allowList extensionAllowList) allows(fileName string) bool {
	if _, listed := allowList.fileNames[fileName]; listed {
		return true
	}
	extension := strings.ToLower(filepath.Ext(fileName))
	if extension == "" {
		return false
	}
	_, listed := allowList.extensions[extension]
	return listed
}
