package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"asrprep/internal/fileutil"
	"asrprep/internal/prep"
)

// FileBackend keeps each key as a file directly under a root directory.
type FileBackend struct {
	root string
}

// NewFileBackend creates root when missing.
func NewFileBackend(root string) (*FileBackend, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, prep.Wrap(prep.ErrConfiguration, "cache", "open", "directory is empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, prep.Wrap(prep.ErrConfiguration, "cache", "open", "create directory", err)
	}
	return &FileBackend{root: root}, nil
}

func (b *FileBackend) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(b.root, key), nil
}

func (b *FileBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := b.path(key)
	if err != nil {
		return false, err
	}
	return fileutil.FileExists(path)
}

func (b *FileBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, prep.Wrap(prep.ErrNotFound, "cache", "open", key, err)
		}
		return nil, err
	}
	return f, nil
}

func (b *FileBackend) Commit(ctx context.Context, key string, write func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(key)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, 0o644, write)
}

func (b *FileBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.root, err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || fileutil.IsTempName(entry.Name()) {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *FileBackend) Location(key string) string {
	return filepath.Join(b.root, key)
}

// Root returns the backing directory.
func (b *FileBackend) Root() string {
	return b.root
}

func (b *FileBackend) Close() error { return nil }
