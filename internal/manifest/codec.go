package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const maxLineBytes = 16 << 20

// Encode writes items to w as gzip-compressed JSON Lines.
func Encode[T any](w io.Writer, items []T) error {
	zw, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("open gzip writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)
	for idx := range items {
		if err := enc.Encode(items[idx]); err != nil {
			_ = zw.Close()
			return fmt.Errorf("encode record %d: %w", idx, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return nil
}

// Decode reads every record from a gzip-compressed JSON Lines stream. Blank
// lines are ignored.
func Decode[T any](r io.Reader) ([]T, error) {
	var items []T
	err := Scan(r, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

// Scan streams records to fn in file order, stopping at the first error.
func Scan[T any](r io.Reader, fn func(T) error) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("decode line %d: %w", line, err)
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	return nil
}
