package manifest

import (
	"fmt"
	"io"
	"os"

	"asrprep/internal/fileutil"
)

// WriteFile atomically replaces path with items encoded as gzip JSON Lines.
func WriteFile[T any](path string, items []T) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, items)
	})
}

// ReadFile loads every record from a manifest file.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := Decode[T](f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}
