package tokenizer

import (
	"errors"
	"testing"

	"github.com/temirov/docsmith/internal/types"
)

type testCounter struct{}

func (testCounter) Name() string { return "stub" }

func (testCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type failingCounter struct{}

func (failingCounter) Name() string { return "failing" }

func (failingCounter) CountString(string) (int, error) { return 0, errors.New("boom") }

func TestCountFileMap(t *testing.T) {
	files := types.FileMap{{Path: "a", Content: "abc"}, {Path: "b", Content: "de"}}
	total, err := CountFileMap(testCounter{}, files)
	if err != nil {
		t.Fatalf("CountFileMap error: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 tokens, got %d", total)
	}
	if _, err := CountFileMap(failingCounter{}, files); err == nil {
		t.Fatalf("expected counter error to propagate")
	}
}
