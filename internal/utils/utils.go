package utils

import (
	"path/filepath"
	"strings"
)

// Names of files and directories with special meaning during traversal.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// MercurialDirectoryName is the name of the Mercurial repository directory.
	MercurialDirectoryName = ".hg"
	// SubversionDirectoryName is the name of the Subversion metadata directory.
	SubversionDirectoryName = ".svn"
)

const pathSegmentSeparator = "/"

// GlobstarSegment is the pattern segment matching zero or more path segments.
const GlobstarSegment = "**"

var serviceFiles = map[string]struct{}{
	IgnoreFileName:    {},
	GitIgnoreFileName: {},
}

// IsServiceFile reports whether name is an ignore file that must never be collected.
func IsServiceFile(name string) bool {
	_, isServiceFile := serviceFiles[name]
	return isServiceFile
}

// DeduplicatePatterns removes empty and duplicate patterns while preserving first-seen order.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{}, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if _, exists := encounteredPatterns[trimmedPattern]; exists {
			continue
		}
		encounteredPatterns[trimmedPattern] = struct{}{}
		result = append(result, trimmedPattern)
	}
	return result
}

// RelativePathOrSelf returns fullPath relative to root in forward-slash form.
// It returns "." when both resolve to the same directory and the cleaned fullPath when no
// relative form exists.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)
	if cleanPath == cleanRoot {
		return "."
	}
	relativePath, relativeError := filepath.Rel(cleanRoot, cleanPath)
	if relativeError != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// ShouldIgnoreByPath reports whether a path relative to the processing root matches any ignore
// pattern. A pattern ending with a slash matches that directory and everything below it, and
// never a regular file of the same name. A single-segment pattern matches the last path segment.
// Multi-segment patterns match the whole path segment by segment. Segments use filepath.Match
// semantics.
func ShouldIgnoreByPath(relativePath string, isDirectory bool, ignorePatterns []string) bool {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	pathSegments := strings.Split(normalizedPath, pathSegmentSeparator)
	lastSegment := pathSegments[len(pathSegments)-1]
	directorySegments := pathSegments
	if !isDirectory {
		directorySegments = pathSegments[:len(pathSegments)-1]
	}

	for _, patternValue := range ignorePatterns {
		normalizedPattern := strings.TrimPrefix(strings.ReplaceAll(patternValue, "\\", pathSegmentSeparator), pathSegmentSeparator)
		isDirectoryPattern := strings.HasSuffix(normalizedPattern, pathSegmentSeparator)
		patternSegments := strings.Split(strings.TrimSuffix(normalizedPattern, pathSegmentSeparator), pathSegmentSeparator)

		if containsGlobstar(patternSegments) {
			if isDirectoryPattern {
				for prefixLength := 1; prefixLength <= len(directorySegments); prefixLength++ {
					if globstarMatch(directorySegments[:prefixLength], patternSegments) {
						return true
					}
				}
			} else if globstarMatch(pathSegments, patternSegments) {
				return true
			}
			continue
		}

		switch {
		case isDirectoryPattern && len(patternSegments) == 1:
			for _, pathSegment := range directorySegments {
				if segmentMatches(patternSegments[0], pathSegment) {
					return true
				}
			}
		case isDirectoryPattern:
			if len(directorySegments) >= len(patternSegments) && segmentsMatch(directorySegments[:len(patternSegments)], patternSegments) {
				return true
			}
		case len(patternSegments) == 1:
			if segmentMatches(patternSegments[0], lastSegment) {
				return true
			}
		default:
			if len(pathSegments) == len(patternSegments) && segmentsMatch(pathSegments, patternSegments) {
				return true
			}
		}
	}
	return false
}

func containsGlobstar(patternSegments []string) bool {
	for _, patternSegment := range patternSegments {
		if patternSegment == GlobstarSegment {
			return true
		}
	}
	return false
}

func globstarMatch(pathSegments, patternSegments []string) bool {
	if len(patternSegments) == 0 {
		return len(pathSegments) == 0
	}
	if patternSegments[0] == GlobstarSegment {
		for skipped := 0; skipped <= len(pathSegments); skipped++ {
			if globstarMatch(pathSegments[skipped:], patternSegments[1:]) {
				return true
			}
		}
		return false
	}
	if len(pathSegments) == 0 || !segmentMatches(patternSegments[0], pathSegments[0]) {
		return false
	}
	return globstarMatch(pathSegments[1:], patternSegments[1:])
}

func segmentsMatch(pathSegments, patternSegments []string) bool {
	for segmentIndex, patternSegment := range patternSegments {
		if !segmentMatches(patternSegment, pathSegments[segmentIndex]) {
			return false
		}
	}
	return true
}

func segmentMatches(patternSegment, pathSegment string) bool {
	isMatched, matchError := filepath.Match(patternSegment, pathSegment)
	return matchError == nil && isMatched
}
