package cutset

import (
	"fmt"
	"math"

	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// FromManifests joins recordings and supervisions into one cut per
// recording, ordered by cut id. Every supervision must reference a known
// recording.
func FromManifests(recordings *manifest.RecordingSet, supervisions *manifest.SupervisionSet) ([]manifest.Cut, error) {
	for _, sup := range supervisions.All() {
		if _, ok := recordings.Get(sup.RecordingID); !ok {
			return nil, prep.Wrap(prep.ErrValidation, "cutset", "join",
				fmt.Sprintf("supervision %q references unknown recording %q", sup.ID, sup.RecordingID), nil)
		}
	}

	recs := recordings.All()
	cuts := make([]manifest.Cut, 0, len(recs))
	for i := range recs {
		rec := recs[i]
		cuts = append(cuts, manifest.Cut{
			ID:           rec.ID,
			Type:         manifest.CutTypeMono,
			Start:        0,
			Duration:     rec.Duration,
			Channel:      firstChannel(rec),
			Supervisions: supervisions.ForRecording(rec.ID),
			Recording:    &rec,
		})
	}
	manifest.SortCuts(cuts)
	return cuts, nil
}

func firstChannel(rec manifest.Recording) int {
	if len(rec.ChannelIDs) > 0 {
		return rec.ChannelIDs[0]
	}
	return 0
}

// Manifests returns the distinct recordings and all supervisions referenced
// by cuts, each ordered by id.
func Manifests(cuts []manifest.Cut) (*manifest.RecordingSet, *manifest.SupervisionSet, error) {
	seen := make(map[string]struct{}, len(cuts))
	recs := make([]manifest.Recording, 0, len(cuts))
	var sups []manifest.Supervision
	for _, cut := range cuts {
		if cut.Recording != nil {
			if _, ok := seen[cut.Recording.ID]; !ok {
				seen[cut.Recording.ID] = struct{}{}
				recs = append(recs, *cut.Recording)
			}
		}
		sups = append(sups, cut.Supervisions...)
	}
	recordingSet, err := manifest.NewRecordingSet(recs)
	if err != nil {
		return nil, nil, prep.Wrap(prep.ErrValidation, "cutset", "collect recordings", "", err)
	}
	supervisionSet, err := manifest.NewSupervisionSet(sups)
	if err != nil {
		return nil, nil, prep.Wrap(prep.ErrValidation, "cutset", "collect supervisions", "", err)
	}
	return recordingSet, supervisionSet, nil
}

// Validate checks that every cut carries its recording, that supervisions
// point at that recording, and that they lie within the cut span.
func Validate(cuts []manifest.Cut, tolerance float64) error {
	ids := make(map[string]struct{}, len(cuts))
	for _, cut := range cuts {
		if _, dup := ids[cut.ID]; dup {
			return prep.Wrap(prep.ErrValidation, "cutset", "validate", fmt.Sprintf("duplicate cut id %q", cut.ID), nil)
		}
		ids[cut.ID] = struct{}{}
		if cut.Recording == nil {
			return prep.Wrap(prep.ErrValidation, "cutset", "validate", fmt.Sprintf("cut %q has no recording", cut.ID), nil)
		}
		if cut.Start < 0 || cut.Start+cut.Duration > cut.Recording.Duration+tolerance {
			return prep.Wrap(prep.ErrValidation, "cutset", "validate",
				fmt.Sprintf("cut %q span [%.3f, %.3f] exceeds recording duration %.3f", cut.ID, cut.Start, cut.Start+cut.Duration, cut.Recording.Duration), nil)
		}
		for _, sup := range cut.Supervisions {
			if sup.RecordingID != cut.Recording.ID {
				return prep.Wrap(prep.ErrValidation, "cutset", "validate",
					fmt.Sprintf("cut %q supervision %q references recording %q", cut.ID, sup.ID, sup.RecordingID), nil)
			}
			if sup.Start < -tolerance || sup.End() > cut.Duration+tolerance {
				return prep.Wrap(prep.ErrValidation, "cutset", "validate",
					fmt.Sprintf("cut %q supervision %q exceeds cut span", cut.ID, sup.ID), nil)
			}
		}
	}
	return nil
}

// TotalDuration sums cut durations in seconds.
func TotalDuration(cuts []manifest.Cut) float64 {
	var total float64
	for _, cut := range cuts {
		total += cut.Duration
	}
	return total
}

func roundTime(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
