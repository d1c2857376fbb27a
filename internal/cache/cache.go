package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"asrprep/internal/config"
	"asrprep/internal/logging"
	"asrprep/internal/prep"
)

// Backend persists immutable entries under string keys.
type Backend interface {
	// Exists reports whether key has been committed.
	Exists(ctx context.Context, key string) (bool, error)
	// Open returns the committed content of key. A missing key yields an
	// error matching prep.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Commit stores the output of write under key atomically, replacing any
	// previous entry.
	Commit(ctx context.Context, key string, write func(io.Writer) error) error
	// List returns committed keys in lexical order.
	List(ctx context.Context) ([]string, error)
	// Location describes where key lives, for logs and summaries.
	Location(key string) string
	Close() error
}

// Open builds the backend selected by cfg for dir.
func Open(cfg config.Cache, dir string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "file":
		return NewFileBackend(dir)
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLitePath, dir)
	default:
		return nil, prep.Wrap(prep.ErrConfiguration, "cache", "open", fmt.Sprintf("unsupported backend %q", cfg.Backend), nil)
	}
}

// Probe splits keys into those present and those missing.
func Probe(ctx context.Context, b Backend, keys []string) (present, missing []string, err error) {
	for _, key := range keys {
		ok, err := b.Exists(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("probe %s: %w", key, err)
		}
		if ok {
			present = append(present, key)
		} else {
			missing = append(missing, key)
		}
	}
	return present, missing, nil
}

// Loader reads a cached value from committed keys.
type Loader[T any] func(ctx context.Context, open func(key string) (io.ReadCloser, error)) (T, error)

// Storer commits a freshly computed value.
type Storer[T any] func(ctx context.Context, commit func(key string, write func(io.Writer) error) error, value T) error

// LoadOrCompute returns the cached value when every key is present.
// Otherwise it computes the value, commits it through store, and returns it.
// A partially present key set is treated as a miss and logged. The boolean
// result reports a cache hit.
func LoadOrCompute[T any](
	ctx context.Context,
	b Backend,
	logger *slog.Logger,
	keys []string,
	load Loader[T],
	compute func(ctx context.Context) (T, error),
	store Storer[T],
) (T, bool, error) {
	var zero T
	present, missing, err := Probe(ctx, b, keys)
	if err != nil {
		return zero, false, err
	}

	if len(missing) == 0 {
		value, err := load(ctx, func(key string) (io.ReadCloser, error) {
			return b.Open(ctx, key)
		})
		if err != nil {
			return zero, false, fmt.Errorf("load cached entries: %w", err)
		}
		return value, true, nil
	}

	if len(present) > 0 {
		logging.WarnWithContext(logger, "cache entries incomplete; recomputing",
			"cache_inconsistent",
			logging.String("present", strings.Join(present, ",")),
			logging.String("missing", strings.Join(missing, ",")),
			logging.String(logging.FieldErrorHint, "existing entries will be overwritten"),
			logging.String(logging.FieldImpact, "preparation reruns from scratch"),
		)
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, false, err
	}
	if err := store(ctx, func(key string, write func(io.Writer) error) error {
		return b.Commit(ctx, key, write)
	}, value); err != nil {
		return zero, false, fmt.Errorf("commit entries: %w", err)
	}
	return value, false, nil
}
