package tokenizer

import (
	"errors"

	"github.com/temirov/docsmith/internal/types"
)

// CountFileMap sums the token estimates of every entry.
func CountFileMap(counter Counter, files types.FileMap) (int, error) {
	if counter == nil {
		return 0, errors.New("nil tokenizer counter")
	}
	total := 0
	for _, entry := range files {
		tokens, err := counter.CountString(entry.Content)
		if err != nil {
			return 0, err
		}
		total += tokens
	}
	return total, nil
}
