package cutset

import (
	"asrprep/internal/audio"
	"asrprep/internal/manifest"
)

// PerturbSpeed returns a speed-perturbed copy of each cut. Identifiers gain
// the "_sp<factor>" suffix, times are divided by factor, and any feature
// reference is dropped since the audio changed.
func PerturbSpeed(cuts []manifest.Cut, factor float64) []manifest.Cut {
	suffix := manifest.SpeedSuffix(factor)
	out := make([]manifest.Cut, 0, len(cuts))
	for _, cut := range cuts {
		pc := manifest.Cut{
			ID:       cut.ID + suffix,
			Type:     cut.Type,
			Start:    roundTime(cut.Start / factor),
			Duration: roundTime(cut.Duration / factor),
			Channel:  cut.Channel,
			Perturbation: &manifest.Perturbation{
				Kind:     manifest.PerturbationSpeed,
				Factor:   factor,
				SourceID: cut.ID,
			},
			Custom: copyMap(cut.Custom),
		}
		if cut.Recording != nil {
			rec := perturbRecording(*cut.Recording, factor, suffix)
			pc.Recording = &rec
			if end := pc.Start + pc.Duration; end > rec.Duration {
				pc.Duration = roundTime(rec.Duration - pc.Start)
			}
		}
		pc.Supervisions = make([]manifest.Supervision, 0, len(cut.Supervisions))
		for _, sup := range cut.Supervisions {
			ps := sup
			ps.ID = sup.ID + suffix
			ps.RecordingID = sup.RecordingID + suffix
			ps.Start = roundTime(sup.Start / factor)
			ps.Duration = roundTime(sup.Duration / factor)
			if end := ps.Start + ps.Duration; end > pc.Duration {
				ps.Duration = roundTime(pc.Duration - ps.Start)
			}
			ps.Custom = copyMap(sup.Custom)
			pc.Supervisions = append(pc.Supervisions, ps)
		}
		out = append(out, pc)
	}
	return out
}

// Augment returns cuts followed by one perturbed copy per factor, in factor
// order. The result is len(cuts)*(1+len(factors)) long.
func Augment(cuts []manifest.Cut, factors []float64) []manifest.Cut {
	out := make([]manifest.Cut, 0, len(cuts)*(1+len(factors)))
	out = append(out, cuts...)
	for _, factor := range factors {
		out = append(out, PerturbSpeed(cuts, factor)...)
	}
	return out
}

func perturbRecording(rec manifest.Recording, factor float64, suffix string) manifest.Recording {
	out := rec
	out.ID = rec.ID + suffix
	out.Sources = append([]manifest.AudioSource(nil), rec.Sources...)
	out.ChannelIDs = append([]int(nil), rec.ChannelIDs...)
	out.Transforms = append(append([]manifest.Transform(nil), rec.Transforms...),
		manifest.Transform{Name: manifest.PerturbationSpeed, Factor: factor})
	out.NumSamples = audio.PerturbedLength(rec.NumSamples, factor)
	if rec.SamplingRate > 0 {
		out.Duration = roundTime(float64(out.NumSamples) / float64(rec.SamplingRate))
	} else {
		out.Duration = roundTime(rec.Duration / factor)
	}
	return out
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
