package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/docsmith/internal/collector"
	"github.com/temirov/docsmith/internal/inference"
	"github.com/temirov/docsmith/internal/prompt"
	"github.com/temirov/docsmith/internal/types"
)

type stubProvider struct {
	output        string
	err           error
	receivedModel string
	receivedText  string
	calls         int
}

func (provider *stubProvider) Name() string { return "stub" }

func (provider *stubProvider) Generate(_ context.Context, model string, promptText string) (string, error) {
	provider.calls++
	provider.receivedModel = model
	provider.receivedText = promptText
	return provider.output, provider.err
}

type stubCounter struct {
	tokens int
	err    error
}

func (counter stubCounter) Name() string { return "stub" }

func (counter stubCounter) CountString(string) (int, error) { return counter.tokens, counter.err }

type stubCopier struct {
	copied string
	err    error
}

func (copier *stubCopier) Copy(text string) error {
	copier.copied = text
	return copier.err
}

func writeProject(testingInstance *testing.T) string {
	testingInstance.Helper()
	root := filepath.Join(testingInstance.TempDir(), "sample")
	files := map[string]string{
		"go.mod":          "module example.com/sample\n\ngo 1.24\n",
		"main.go":         "package main\n",
		"docs/guide.md":   "# Guide\n",
		".git/HEAD":       "ref: refs/heads/main\n",
		"assets/logo.bin": "\x00\x01",
	}
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
			testingInstance.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(absolutePath, []byte(content), 0o644); err != nil {
			testingInstance.Fatalf("write %s: %v", relativePath, err)
		}
	}
	return root
}

func baseOptions(root string, outputPath string, provider inference.Provider) Options {
	return Options{
		Collector: collector.Options{
			Root:         root,
			AllFiles:     true,
			MaxFileBytes: collector.DefaultMaxFileBytes,
		},
		DocumentType: prompt.DocumentTypeReadme,
		Model:        "deepseek-r1",
		OutputPath:   outputPath,
		Provider:     provider,
		Logger:       zap.NewNop(),
	}
}

func TestRunWritesSanitizedDocument(testingInstance *testing.T) {
	root := writeProject(testingInstance)
	outputPath := filepath.Join(testingInstance.TempDir(), "output.md")
	provider := &stubProvider{output: "<think>planning</think>\n# Sample\n\nA project.\n"}
	copier := &stubCopier{}
	options := baseOptions(root, outputPath, provider)
	options.TokenCounter = stubCounter{tokens: 42}
	options.Copier = copier

	result, runError := Run(context.Background(), options)
	if runError != nil {
		testingInstance.Fatalf("Run: %v", runError)
	}

	written, readError := os.ReadFile(outputPath)
	if readError != nil {
		testingInstance.Fatalf("read output: %v", readError)
	}
	if string(written) != "# Sample\n\nA project.\n" {
		testingInstance.Fatalf("unexpected output %q", string(written))
	}
	if result.Files != 3 || result.PromptTokens != 42 || result.OutputPath != outputPath {
		testingInstance.Fatalf("unexpected result %+v", result)
	}
	if copier.copied != "# Sample\n\nA project." {
		testingInstance.Fatalf("unexpected clipboard text %q", copier.copied)
	}
	if provider.receivedModel != "deepseek-r1" {
		testingInstance.Fatalf("unexpected model %q", provider.receivedModel)
	}
	for _, expected := range []string{"===== main.go =====", "===== docs/guide.md =====", "example.com/sample", "sample"} {
		if !strings.Contains(provider.receivedText, expected) {
			testingInstance.Fatalf("prompt missing %q", expected)
		}
	}
	if strings.Contains(provider.receivedText, "refs/heads/main") {
		testingInstance.Fatalf("prompt leaked .git contents")
	}
}

func TestRunOverwritesExistingOutput(testingInstance *testing.T) {
	root := writeProject(testingInstance)
	outputPath := filepath.Join(testingInstance.TempDir(), "output.md")
	if err := os.WriteFile(outputPath, []byte("stale"), 0o644); err != nil {
		testingInstance.Fatalf("seed output: %v", err)
	}
	if _, runError := Run(context.Background(), baseOptions(root, outputPath, &stubProvider{output: "fresh"})); runError != nil {
		testingInstance.Fatalf("Run: %v", runError)
	}
	written, _ := os.ReadFile(outputPath)
	if string(written) != "fresh\n" {
		testingInstance.Fatalf("expected overwrite, got %q", string(written))
	}
}

func TestRunFailuresLeaveNoOutput(testingInstance *testing.T) {
	modelMissing := &inference.ProcessError{Source: "ollama", ExitCode: 1, Message: "model not found"}
	testCases := []struct {
		name          string
		root          func(*testing.T) string
		provider      *stubProvider
		expectedError error
		expectedText  string
		expectCalled  bool
	}{
		{
			name: "missing root",
			root: func(testingInstance *testing.T) string {
				return filepath.Join(testingInstance.TempDir(), "absent")
			},
			provider:      &stubProvider{output: "unused"},
			expectedError: types.ErrNotFound,
		},
		{
			name:          "model not found",
			root:          writeProject,
			provider:      &stubProvider{err: modelMissing},
			expectedError: types.ErrProcessFailure,
			expectedText:  "model not found",
			expectCalled:  true,
		},
		{
			name:          "only reasoning",
			root:          writeProject,
			provider:      &stubProvider{output: "<think>nothing to say</think>"},
			expectedError: types.ErrProcessFailure,
			expectCalled:  true,
		},
		{
			name: "empty directory",
			root: func(testingInstance *testing.T) string {
				return testingInstance.TempDir()
			},
			provider:      &stubProvider{output: "unused"},
			expectedError: types.ErrNotFound,
		},
	}

	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(subTest *testing.T) {
			outputDirectory := subTest.TempDir()
			outputPath := filepath.Join(outputDirectory, "output.md")
			_, runError := Run(context.Background(), baseOptions(testCase.root(subTest), outputPath, testCase.provider))
			if !errors.Is(runError, testCase.expectedError) {
				subTest.Fatalf("expected %v, got %v", testCase.expectedError, runError)
			}
			if testCase.expectedText != "" && runError.Error() != testCase.expectedText {
				subTest.Fatalf("expected message %q, got %q", testCase.expectedText, runError.Error())
			}
			if (testCase.provider.calls > 0) != testCase.expectCalled {
				subTest.Fatalf("unexpected provider calls: %d", testCase.provider.calls)
			}
			entries, _ := os.ReadDir(outputDirectory)
			if len(entries) != 0 {
				subTest.Fatalf("expected no files in output directory, found %d", len(entries))
			}
		})
	}
}

func TestRunExcludesPreviousOutputOnRerun(testingInstance *testing.T) {
	root := writeProject(testingInstance)
	testingInstance.Chdir(root)
	provider := &stubProvider{output: "# Generated README"}
	options := Options{
		Collector: collector.Options{
			Root:         ".",
			MaxFileBytes: collector.DefaultMaxFileBytes,
		},
		DocumentType: prompt.DocumentTypeReadme,
		Provider:     provider,
		Logger:       zap.NewNop(),
	}

	for run := 0; run < 2; run++ {
		if _, runError := Run(context.Background(), options); runError != nil {
			testingInstance.Fatalf("run %d: %v", run+1, runError)
		}
	}
	if _, statError := os.Stat(filepath.Join(root, "output.md")); statError != nil {
		testingInstance.Fatalf("expected output.md in the project root: %v", statError)
	}
	secondPrompt := provider.receivedText
	if strings.Contains(secondPrompt, "===== output.md =====") || strings.Contains(secondPrompt, "# Generated README") {
		testingInstance.Fatalf("second prompt includes the previous output:\n%s", secondPrompt)
	}
	if !strings.Contains(secondPrompt, "===== main.go =====") {
		testingInstance.Fatalf("second prompt lost project files:\n%s", secondPrompt)
	}
}

func TestRunRequiresProvider(testingInstance *testing.T) {
	_, runError := Run(context.Background(), Options{})
	if !errors.Is(runError, ErrNoProvider) {
		testingInstance.Fatalf("expected ErrNoProvider, got %v", runError)
	}
}

func TestRunClipboardFailureIsWarning(testingInstance *testing.T) {
	root := writeProject(testingInstance)
	outputPath := filepath.Join(testingInstance.TempDir(), "output.md")
	core, logs := observer.New(zapcore.WarnLevel)
	options := baseOptions(root, outputPath, &stubProvider{output: "text"})
	options.Logger = zap.New(core)
	options.Copier = &stubCopier{err: errors.New("no clipboard")}
	options.TokenCounter = stubCounter{err: errors.New("no encoder")}

	if _, runError := Run(context.Background(), options); runError != nil {
		testingInstance.Fatalf("Run: %v", runError)
	}
	if logs.FilterMessage(warningClipboard).Len() != 1 {
		testingInstance.Fatalf("expected clipboard warning, got %v", logs.All())
	}
	if logs.FilterMessage(warningTokenCount).Len() != 1 {
		testingInstance.Fatalf("expected token warning, got %v", logs.All())
	}
}

func TestPreviewDoesNotInvokeModel(testingInstance *testing.T) {
	root := writeProject(testingInstance)
	options := baseOptions(root, "", nil)
	options.DocumentType = prompt.DocumentTypeBlog

	rendered, files, previewError := Preview(context.Background(), options)
	if previewError != nil {
		testingInstance.Fatalf("Preview: %v", previewError)
	}
	if len(files) != 3 {
		testingInstance.Fatalf("expected 3 files, got %d", len(files))
	}
	expected, _ := prompt.Build(files, prompt.DocumentTypeBlog, prompt.Metadata{ProjectName: "sample", ModulePath: "example.com/sample"})
	if rendered != expected {
		testingInstance.Fatalf("preview differs from Build output")
	}
}

func TestWriteOutputMissingDirectory(testingInstance *testing.T) {
	target := filepath.Join(testingInstance.TempDir(), "missing", "output.md")
	if err := WriteOutput(target, "text"); !errors.Is(err, types.ErrIO) {
		testingInstance.Fatalf("expected ErrIO, got %v", err)
	}
}
