package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/docsmith/internal/types"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", relativePath, err)
		}
		if err := os.WriteFile(absolutePath, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", relativePath, err)
		}
	}
}

func collectedPaths(fileMap types.FileMap) []string {
	paths := make([]string, 0, len(fileMap))
	for _, entry := range fileMap {
		paths = append(paths, entry.Path)
	}
	return paths
}

func assertPaths(t *testing.T, fileMap types.FileMap, expected []string) {
	t.Helper()
	actual := collectedPaths(fileMap)
	if len(actual) != len(expected) {
		t.Fatalf("expected paths %v, got %v", expected, actual)
	}
	for index := range expected {
		if actual[index] != expected[index] {
			t.Fatalf("expected paths %v, got %v", expected, actual)
		}
	}
}

func TestCollectOneEntryPerAllowListedFile(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"README.md":             "# project",
		"main.go":               "package main",
		"internal/app/app.go":   "package app",
		"docs/guide/intro.txt":  "intro",
		"scripts/build.sh":      "#!/bin/sh",
		"web/src/index.ts":      "export {}",
		"deeply/nested/a/b.py":  "print()",
		"deeply/nested/a/c.rst": "title",
	}
	writeTree(t, root, files)

	fileMap, err := Collect(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if len(fileMap) != len(files) {
		t.Fatalf("expected %d entries, got %d: %v", len(files), len(fileMap), collectedPaths(fileMap))
	}
	for relativePath, content := range files {
		collected, found := fileMap.Lookup(relativePath)
		if !found {
			t.Fatalf("expected %s in file map", relativePath)
		}
		if collected != content {
			t.Fatalf("expected content %q for %s, got %q", content, relativePath, collected)
		}
	}
	for index := 1; index < len(fileMap); index++ {
		if fileMap[index-1].Path >= fileMap[index].Path {
			t.Fatalf("expected sorted paths, got %v", collectedPaths(fileMap))
		}
	}
}

func TestCollectFiltering(t *testing.T) {
	testCases := []struct {
		name     string
		files    map[string]string
		options  Options
		expected []string
	}{
		{
			name:     "allow_list_skips_unknown_extensions",
			files:    map[string]string{"a.go": "a", "b.unknown": "b", "Makefile": "all:", "LICENSE": "mit"},
			expected: []string{"Makefile", "a.go"},
		},
		{
			name:     "all_files_includes_everything",
			files:    map[string]string{"a.go": "a", "b.unknown": "b", "LICENSE": "mit"},
			options:  Options{AllFiles: true},
			expected: []string{"LICENSE", "a.go", "b.unknown"},
		},
		{
			name:     "custom_extensions",
			files:    map[string]string{"a.go": "a", "b.md": "b", "c.MD": "c"},
			options:  Options{Extensions: []string{".md"}},
			expected: []string{"b.md", "c.MD"},
		},
		{
			name:     "version_control_directories_skipped",
			files:    map[string]string{".git/config.txt": "x", ".hg/store.txt": "y", ".svn/entries.txt": "z", "main.go": "m"},
			expected: []string{"main.go"},
		},
		{
			name:     "include_git",
			files:    map[string]string{".git/notes.txt": "x", "main.go": "m"},
			options:  Options{IncludeGit: true},
			expected: []string{".git/notes.txt", "main.go"},
		},
		{
			name:     "gitignore_honored",
			files:    map[string]string{".gitignore": "dist/\n*.log.txt\n", "dist/app.js": "x", "run.log.txt": "y", "main.go": "m"},
			options:  Options{UseGitignore: true},
			expected: []string{"main.go"},
		},
		{
			name: "nested_gitignore_applies_at_depth",
			files: map[string]string{
				"sub/.gitignore":     "*.log.txt\n",
				"sub/a.log.txt":      "a",
				"sub/deep/b.log.txt": "b",
				"other/c.log.txt":    "c",
				"sub/deep/keep.go":   "k",
			},
			options:  Options{UseGitignore: true},
			expected: []string{"other/c.log.txt", "sub/deep/keep.go"},
		},
		{
			name:     "gitignore_disabled",
			files:    map[string]string{".gitignore": "dist/\n", "dist/app.js": "x"},
			expected: []string{"dist/app.js"},
		},
		{
			name:     "explicit_exclusions",
			files:    map[string]string{"vendor/lib.go": "x", "main.go": "m", "main_test.go": "t"},
			options:  Options{ExclusionPatterns: []string{"vendor/", "*_test.go"}},
			expected: []string{"main.go"},
		},
		{
			name:     "ignore_files_never_collected",
			files:    map[string]string{".ignore": "none.txt\n", ".gitignore": "none.md\n", "keep.txt": "k"},
			options:  Options{AllFiles: true, UseIgnoreFile: true, UseGitignore: true},
			expected: []string{"keep.txt"},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, testCase.files)
			options := testCase.options
			options.Root = root
			fileMap, err := Collect(context.Background(), options)
			if err != nil {
				t.Fatalf("Collect error: %v", err)
			}
			assertPaths(t, fileMap, testCase.expected)
		})
	}
}

func TestCollectSkipsListedPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": "package main", "output.md": "previous answer", "docs/output.md": "kept"})

	fileMap, err := Collect(context.Background(), Options{
		Root:      root,
		SkipPaths: []string{filepath.Join(root, "output.md")},
	})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	assertPaths(t, fileMap, []string{"docs/output.md", "main.go"})
}

func TestCollectMissingRootReturnsNotFound(t *testing.T) {
	_, err := Collect(context.Background(), Options{Root: filepath.Join(t.TempDir(), "absent")})
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollectSkipsBinaryFilesWithWarning(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": "package main", "blob.txt": "a\x00b", "latin1.txt": "caf\xe9"})

	core, logs := observer.New(zapcore.WarnLevel)
	fileMap, err := Collect(context.Background(), Options{Root: root, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	assertPaths(t, fileMap, []string{"main.go"})
	if warnings := logs.FilterMessage(warningSkipBinary).Len(); warnings != 2 {
		t.Fatalf("expected 2 binary warnings, got %d", warnings)
	}
}

func TestCollectStrictAbortsOnInvalidEncoding(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.go": "package main", "blob.txt": "a\x00b"})

	_, err := Collect(context.Background(), Options{Root: root, Strict: true})
	if !errors.Is(err, types.ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestCollectSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"small.txt": "abc", "large.txt": "abcdefghij"})

	core, logs := observer.New(zapcore.WarnLevel)
	fileMap, err := Collect(context.Background(), Options{Root: root, MaxFileBytes: 5, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	assertPaths(t, fileMap, []string{"small.txt"})
	if logs.FilterMessage(warningSkipOversized).Len() != 1 {
		t.Fatalf("expected one oversized warning")
	}
}

func TestCollectSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"notes.bin": "plain"})

	fileMap, err := Collect(context.Background(), Options{Root: filepath.Join(root, "notes.bin")})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	assertPaths(t, fileMap, []string{"notes.bin"})
}

func TestCollectHonorsCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.go": "a", "b.go": "b"})
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Collect(cancelledContext, Options{Root: root, Concurrency: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
