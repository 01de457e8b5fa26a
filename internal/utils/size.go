package utils

import (
	"strconv"
	"strings"
)

var fileSizeUnits = []string{"b", "kb", "mb", "gb", "tb", "pb"}

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0b"
	}
	if bytes < 1024 {
		return strconv.FormatInt(bytes, 10) + "b"
	}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(fileSizeUnits)-1 {
		value /= 1024
		unitIndex++
	}
	precision := 0
	if value < 10 {
		precision = 1
	}
	formatted := strconv.FormatFloat(value, 'f', precision, 64)
	return strings.TrimSuffix(formatted, ".0") + fileSizeUnits[unitIndex]
}
