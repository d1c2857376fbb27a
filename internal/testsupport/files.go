package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes size bytes that start like a RIFF header but cannot be
// decoded as audio. A size below the header length writes the header alone.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	header := []byte("RIFF\x00\x00\x00\x00WAVE")
	body := int64(0)
	if size > int64(len(header)) {
		body = size - int64(len(header))
	}
	data := append(header, bytes.Repeat([]byte{0x42}, int(body))...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
