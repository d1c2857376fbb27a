package prep

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks missing or invalid paths and arguments.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks violated invariants such as duplicate identifiers.
	ErrValidation = errors.New("validation error")
	// ErrCorpus marks a malformed or unreadable corpus item.
	ErrCorpus = errors.New("corpus integrity error")
	// ErrWorker marks an executor or storage failure that aborts a partition.
	ErrWorker = errors.New("worker failure")
	// ErrNotFound marks a missing manifest or cache entry.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrWorker
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err should terminate the process rather than be
// contained to the item that produced it.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrCorpus)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	default:
		return 1
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "preparation failure"
	}
	return strings.Join(parts, ": ")
}
