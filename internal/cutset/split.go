package cutset

import (
	"fmt"
	"math"
	"sort"

	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// SortKey extracts the ordering key of a cut.
type SortKey func(manifest.Cut) string

// ByID orders cuts by cut id.
func ByID(c manifest.Cut) string { return c.ID }

// ByRecordingID orders cuts by recording id, then cut id.
func ByRecordingID(c manifest.Cut) string { return c.RecordingID() + "\x00" + c.ID }

// KeyByName resolves a configured order key.
func KeyByName(name string) (SortKey, error) {
	switch name {
	case "", "id":
		return ByID, nil
	case "recording_id":
		return ByRecordingID, nil
	default:
		return nil, prep.Wrap(prep.ErrConfiguration, "cutset", "split", fmt.Sprintf("unknown order key %q", name), nil)
	}
}

// SplitPositional sorts cuts by key and assigns the first floor(ratio*N) to
// train and the rest to test. It is deterministic for a given input set
// regardless of input order.
func SplitPositional(cuts []manifest.Cut, ratio float64, key SortKey) (train, test []manifest.Cut, err error) {
	if key == nil {
		return nil, nil, prep.Wrap(prep.ErrConfiguration, "cutset", "split", "sort key is required", nil)
	}
	if math.IsNaN(ratio) || ratio <= 0 || ratio >= 1 {
		return nil, nil, prep.Wrap(prep.ErrConfiguration, "cutset", "split", fmt.Sprintf("ratio must be in (0, 1) (got %v)", ratio), nil)
	}
	sorted := append([]manifest.Cut(nil), cuts...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })

	n := int(math.Floor(ratio * float64(len(sorted))))
	train = append([]manifest.Cut(nil), sorted[:n]...)
	test = append([]manifest.Cut(nil), sorted[n:]...)
	return train, test, nil
}

// Chunk splits cuts into at most n contiguous, non-empty groups whose sizes
// differ by at most one.
func Chunk(cuts []manifest.Cut, n int) [][]manifest.Cut {
	if len(cuts) == 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	if n > len(cuts) {
		n = len(cuts)
	}
	out := make([][]manifest.Cut, 0, n)
	base := len(cuts) / n
	extra := len(cuts) % n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, cuts[start:start+size])
		start += size
	}
	return out
}
