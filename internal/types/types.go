// Package types defines the cross-package data structures and error sentinels used by docsmith.
package types

import (
	"errors"
	"sort"
)

// Error taxonomy shared by the collector, the inference providers, and the pipeline.
var (
	// ErrNotFound reports a missing root path or a missing inference binary.
	ErrNotFound = errors.New("not found")
	// ErrIO reports a read or write failure.
	ErrIO = errors.New("i/o failure")
	// ErrInvalidEncoding reports a file that is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrProcessFailure reports an inference process that did not complete successfully.
	ErrProcessFailure = errors.New("process failure")
)

// FileEntry is one collected file keyed by its forward-slash path relative to the scan root.
type FileEntry struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	SizeBytes int64  `json:"sizeBytes"`
}

// FileMap is the ordered result of a traversal. Paths are unique.
type FileMap []FileEntry

// Sort orders entries lexicographically by path.
func (fileMap FileMap) Sort() {
	sort.Slice(fileMap, func(left, right int) bool {
		return fileMap[left].Path < fileMap[right].Path
	})
}

// Lookup returns the content stored for path.
func (fileMap FileMap) Lookup(path string) (string, bool) {
	for _, entry := range fileMap {
		if entry.Path == path {
			return entry.Content, true
		}
	}
	return "", false
}

// TotalBytes sums the sizes of all entries.
func (fileMap FileMap) TotalBytes() int64 {
	var total int64
	for _, entry := range fileMap {
		total += entry.SizeBytes
	}
	return total
}
