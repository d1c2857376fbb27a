package manifest

import (
	"fmt"
	"sort"
)

// RecordingSet is an id-indexed, id-ordered collection of recordings.
type RecordingSet struct {
	items []Recording
	index map[string]int
}

// NewRecordingSet sorts recordings by id and rejects duplicates.
func NewRecordingSet(recordings []Recording) (*RecordingSet, error) {
	items := append([]Recording(nil), recordings...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	index := make(map[string]int, len(items))
	for idx, rec := range items {
		if rec.ID == "" {
			return nil, fmt.Errorf("recording at position %d has empty id", idx)
		}
		if _, dup := index[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate recording id %q", rec.ID)
		}
		index[rec.ID] = idx
	}
	return &RecordingSet{items: items, index: index}, nil
}

// Len returns the number of recordings.
func (s *RecordingSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Get looks up a recording by id.
func (s *RecordingSet) Get(id string) (Recording, bool) {
	if s == nil {
		return Recording{}, false
	}
	idx, ok := s.index[id]
	if !ok {
		return Recording{}, false
	}
	return s.items[idx], true
}

// All returns a copy of the recordings in id order.
func (s *RecordingSet) All() []Recording {
	if s == nil {
		return nil
	}
	return append([]Recording(nil), s.items...)
}

// TotalDuration sums recording durations in seconds.
func (s *RecordingSet) TotalDuration() float64 {
	var total float64
	for _, rec := range s.All() {
		total += rec.Duration
	}
	return total
}

// SupervisionSet is an id-ordered collection of supervisions with a
// secondary index by recording id.
type SupervisionSet struct {
	items       []Supervision
	index       map[string]int
	byRecording map[string][]int
}

// NewSupervisionSet sorts supervisions by id and rejects duplicates.
func NewSupervisionSet(supervisions []Supervision) (*SupervisionSet, error) {
	items := append([]Supervision(nil), supervisions...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	index := make(map[string]int, len(items))
	byRecording := make(map[string][]int, len(items))
	for idx, sup := range items {
		if sup.ID == "" {
			return nil, fmt.Errorf("supervision at position %d has empty id", idx)
		}
		if _, dup := index[sup.ID]; dup {
			return nil, fmt.Errorf("duplicate supervision id %q", sup.ID)
		}
		index[sup.ID] = idx
		byRecording[sup.RecordingID] = append(byRecording[sup.RecordingID], idx)
	}
	return &SupervisionSet{items: items, index: index, byRecording: byRecording}, nil
}

// Len returns the number of supervisions.
func (s *SupervisionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Get looks up a supervision by id.
func (s *SupervisionSet) Get(id string) (Supervision, bool) {
	if s == nil {
		return Supervision{}, false
	}
	idx, ok := s.index[id]
	if !ok {
		return Supervision{}, false
	}
	return s.items[idx], true
}

// ForRecording returns the supervisions attached to a recording, in id order.
func (s *SupervisionSet) ForRecording(recordingID string) []Supervision {
	if s == nil {
		return nil
	}
	positions := s.byRecording[recordingID]
	out := make([]Supervision, 0, len(positions))
	for _, idx := range positions {
		out = append(out, s.items[idx])
	}
	return out
}

// All returns a copy of the supervisions in id order.
func (s *SupervisionSet) All() []Supervision {
	if s == nil {
		return nil
	}
	return append([]Supervision(nil), s.items...)
}

// SortCuts orders cuts by id in place.
func SortCuts(cuts []Cut) {
	sort.SliceStable(cuts, func(i, j int) bool { return cuts[i].ID < cuts[j].ID })
}
