// Package config loads docsmith configuration files and the ignore files found in scanned trees.
package config

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/docsmith/internal/utils"
)

const (
	commentPrefix  = "#"
	negationPrefix = "!"
)

// IgnoreOptions selects which ignore sources contribute patterns.
type IgnoreOptions struct {
	ExclusionPatterns []string
	UseGitignore      bool
	UseIgnoreFile     bool
	IncludeGit        bool
}

// LoadIgnoreFilePatterns reads one ignore file. A missing file yields no patterns.
// Negated patterns are not supported and are dropped.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer fileHandle.Close()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) || strings.HasPrefix(trimmedLine, negationPrefix) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadRecursiveIgnorePatterns walks rootDirectoryPath and aggregates patterns from every
// utils.IgnoreFileName and utils.GitIgnoreFileName it finds. Patterns from a nested directory are
// prefixed with that directory's path relative to the root. Version-control directories are not
// descended into unless options.IncludeGit is set. Explicit exclusion patterns are appended last.
func LoadRecursiveIgnorePatterns(rootDirectoryPath string, options IgnoreOptions) ([]string, error) {
	var aggregatedPatterns []string

	loadInto := func(currentDirectoryPath, fileName, prefix string) error {
		patterns, loadError := LoadIgnoreFilePatterns(filepath.Join(currentDirectoryPath, fileName))
		if loadError != nil {
			return fmt.Errorf("loading %s from %s: %w", fileName, currentDirectoryPath, loadError)
		}
		for _, pattern := range patterns {
			aggregatedPatterns = append(aggregatedPatterns, prefix+scopeNestedPattern(pattern, prefix))
		}
		return nil
	}

	walkFunction := func(currentDirectoryPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if IsVersionControlDirectory(directoryEntry.Name(), options.IncludeGit) {
			return filepath.SkipDir
		}

		relativeDirectory := utils.RelativePathOrSelf(currentDirectoryPath, rootDirectoryPath)
		prefix := ""
		if relativeDirectory != "." {
			prefix = relativeDirectory + "/"
		}

		if options.UseIgnoreFile {
			if loadError := loadInto(currentDirectoryPath, utils.IgnoreFileName, prefix); loadError != nil {
				return loadError
			}
		}
		if options.UseGitignore {
			if loadError := loadInto(currentDirectoryPath, utils.GitIgnoreFileName, prefix); loadError != nil {
				return loadError
			}
		}
		return nil
	}

	if options.UseIgnoreFile || options.UseGitignore {
		if walkError := filepath.WalkDir(rootDirectoryPath, walkFunction); walkError != nil {
			return nil, walkError
		}
	}

	aggregatedPatterns = append(aggregatedPatterns, options.ExclusionPatterns...)
	return utils.DeduplicatePatterns(aggregatedPatterns), nil
}

// scopeNestedPattern keeps anchored patterns relative to their ignore file and lets slash-free
// patterns from a nested ignore file match at any depth below it, as git does.
func scopeNestedPattern(pattern string, prefix string) string {
	anchored := strings.HasPrefix(pattern, "/") || strings.Contains(strings.TrimSuffix(pattern, "/"), "/")
	trimmedPattern := strings.TrimPrefix(pattern, "/")
	if prefix == "" || anchored {
		return trimmedPattern
	}
	return utils.GlobstarSegment + "/" + trimmedPattern
}

// IsVersionControlDirectory reports whether a directory name is version-control metadata that
// traversal must skip. includeGit exempts only the Git directory.
func IsVersionControlDirectory(name string, includeGit bool) bool {
	switch name {
	case utils.GitDirectoryName:
		return !includeGit
	case utils.MercurialDirectoryName, utils.SubversionDirectoryName:
		return true
	default:
		return false
	}
}
