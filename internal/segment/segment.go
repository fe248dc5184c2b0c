// Package segment downloads individual HLS media segments to disk.
package segment

import (
	"strconv"
	"strings"
)

// Extension is the suffix of every segment file.
const Extension = ".ts"

// FileName returns the on-disk name of the segment with the given index.
func FileName(index int) string {
	return strconv.Itoa(index) + Extension
}

// IndexFromName parses a name produced by FileName. It returns false for any
// other name, including zero-padded or signed numbers.
func IndexFromName(name string) (int, bool) {
	digits, ok := strings.CutSuffix(name, Extension)
	if !ok || digits == "" {
		return 0, false
	}
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}
