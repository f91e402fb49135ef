package api

import (
	"fmt"
	"strconv"

	"github.com/arrmate/arrmate/internal/arr/types"
)

// ParseID converts a string id into the numeric id the *arr APIs use. A
// malformed id cannot exist on the backend, so it reports ErrNotFound.
func ParseID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", id, types.ErrNotFound)
	}
	return n, nil
}

// FormatID is the inverse of ParseID.
func FormatID(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}
