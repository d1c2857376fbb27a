package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cuts.jsonl.gz")

	for _, content := range []string{"first", "second"} {
		err := WriteAtomic(path, 0o644, func(w io.Writer) error {
			_, err := io.WriteString(w, content)
			return err
		})
		if err != nil {
			t.Fatalf("WriteAtomic(%q): %v", content, err)
		}
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cuts.jsonl.gz")
	boom := errors.New("boom")

	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
	if exists, _ := FileExists(path); exists {
		t.Fatal("expected no file after failed write")
	}
	assertNoTempFiles(t, dir)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	if ok, err := FileExists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if ok, err := FileExists(dir); err != nil || ok {
		t.Fatalf("directory should not count as file: ok=%v err=%v", ok, err)
	}
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := FileExists(path); err != nil || !ok {
		t.Fatalf("existing file: ok=%v err=%v", ok, err)
	}
}

func TestTempNameRecognized(t *testing.T) {
	name := TempName("/tmp/out/cuts.jsonl.gz")
	if !IsTempName(name) {
		t.Fatalf("expected %q to be recognized as temp", name)
	}
	for _, name := range []string{"cuts.jsonl.gz", ".lock", ".hidden.gz"} {
		if IsTempName(name) {
			t.Fatalf("did not expect %q to be temp", name)
		}
	}
}

func TestLockDirExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := LockDir(dir, ".asrprep.lock")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := LockDir(dir, ".asrprep.lock"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	second, err := LockDir(dir, ".asrprep.lock")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = second.Unlock()
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if IsTempName(entry.Name()) {
			t.Fatalf("leftover temp file %s", entry.Name())
		}
	}
}
