package cache_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"asrprep/internal/cache"
	"asrprep/internal/config"
	"asrprep/internal/logging"
	"asrprep/internal/prep"
)

func backends(t *testing.T) map[string]cache.Backend {
	t.Helper()
	dir := t.TempDir()
	fileBackend, err := cache.Open(config.Cache{Backend: "file"}, filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("open file backend: %v", err)
	}
	sqliteBackend, err := cache.Open(config.Cache{Backend: "sqlite", SQLitePath: filepath.Join(dir, "cache.db")}, filepath.Join(dir, "manifests"))
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() {
		_ = fileBackend.Close()
		_ = sqliteBackend.Close()
	})
	return map[string]cache.Backend{"file": fileBackend, "sqlite": sqliteBackend}
}

func commitString(t *testing.T, b cache.Backend, key, value string) {
	t.Helper()
	err := b.Commit(context.Background(), key, func(w io.Writer) error {
		_, err := io.WriteString(w, value)
		return err
	})
	if err != nil {
		t.Fatalf("Commit(%s): %v", key, err)
	}
}

func readString(t *testing.T, b cache.Backend, key string) string {
	t.Helper()
	rc, err := b.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open(%s): %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return string(data)
}

func TestBackendCommitOpenList(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if ok, err := b.Exists(ctx, "b.jsonl.gz"); err != nil || ok {
				t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
			}
			if _, err := b.Open(ctx, "b.jsonl.gz"); !errors.Is(err, prep.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			commitString(t, b, "b.jsonl.gz", "one")
			commitString(t, b, "a.jsonl.gz", "two")
			commitString(t, b, "b.jsonl.gz", "three")

			if got := readString(t, b, "b.jsonl.gz"); got != "three" {
				t.Fatalf("expected overwrite, got %q", got)
			}
			keys, err := b.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !reflect.DeepEqual(keys, []string{"a.jsonl.gz", "b.jsonl.gz"}) {
				t.Fatalf("unexpected keys %v", keys)
			}
			if loc := b.Location("a.jsonl.gz"); !strings.Contains(loc, "a.jsonl.gz") {
				t.Fatalf("location should mention key, got %q", loc)
			}
		})
	}
}

func TestBackendFailedCommitLeavesKeyAbsent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			boom := errors.New("boom")
			err := b.Commit(context.Background(), "x", func(w io.Writer) error {
				_, _ = io.WriteString(w, "partial")
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected writer error, got %v", err)
			}
			if ok, _ := b.Exists(context.Background(), "x"); ok {
				t.Fatal("failed commit must not leave an entry")
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := cache.Open(config.Cache{Backend: "s3"}, t.TempDir()); !errors.Is(err, prep.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type pair struct{ A, B string }

func loadPair(ctx context.Context, open func(string) (io.ReadCloser, error)) (pair, error) {
	var out pair
	for key, dst := range map[string]*string{"a": &out.A, "b": &out.B} {
		rc, err := open(key)
		if err != nil {
			return pair{}, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return pair{}, err
		}
		*dst = string(data)
	}
	return out, nil
}

func storePair(ctx context.Context, commit func(string, func(io.Writer) error) error, value pair) error {
	if err := commit("a", func(w io.Writer) error { _, err := io.WriteString(w, value.A); return err }); err != nil {
		return err
	}
	return commit("b", func(w io.Writer) error { _, err := io.WriteString(w, value.B); return err })
}

func TestLoadOrComputeHitMissAndPartial(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			calls := 0
			compute := func(context.Context) (pair, error) {
				calls++
				return pair{A: "alpha", B: "beta"}, nil
			}
			logger := logging.NewNop()

			got, hit, err := cache.LoadOrCompute(ctx, b, logger, []string{"a", "b"}, loadPair, compute, storePair)
			if err != nil || hit || calls != 1 {
				t.Fatalf("first call: got=%+v hit=%v calls=%d err=%v", got, hit, calls, err)
			}

			got, hit, err = cache.LoadOrCompute(ctx, b, logger, []string{"a", "b"}, loadPair, compute, storePair)
			if err != nil || !hit || calls != 1 || got.B != "beta" {
				t.Fatalf("second call: got=%+v hit=%v calls=%d err=%v", got, hit, calls, err)
			}

			_, _, err = cache.LoadOrCompute(ctx, b, logger, []string{"a", "c"}, loadPair, compute, storePair)
			if err != nil || calls != 2 {
				t.Fatalf("partial key set should recompute: calls=%d err=%v", calls, err)
			}
		})
	}
}

func TestLoadOrComputePropagatesComputeError(t *testing.T) {
	b := backends(t)["file"]
	boom := errors.New("scan failed")
	_, _, err := cache.LoadOrCompute(context.Background(), b, logging.NewNop(), []string{"a", "b"}, loadPair,
		func(context.Context) (pair, error) { return pair{}, boom }, storePair)
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if ok, _ := b.Exists(context.Background(), "a"); ok {
		t.Fatal("nothing should be committed after a compute failure")
	}
}

func TestSQLiteNamespaceIgnoresRelativeSpelling(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)
	dbPath := filepath.Join(base, "cache.db")

	relative, err := cache.NewSQLiteBackend(dbPath, "manifests")
	if err != nil {
		t.Fatalf("open relative: %v", err)
	}
	commitString(t, relative, "c.jsonl.gz", "shared")
	if err := relative.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	absolute, err := cache.NewSQLiteBackend(dbPath, filepath.Join(base, "manifests"))
	if err != nil {
		t.Fatalf("open absolute: %v", err)
	}
	defer absolute.Close()
	if got := readString(t, absolute, "c.jsonl.gz"); got != "shared" {
		t.Fatalf("expected entry visible through absolute path, got %q", got)
	}
}
