package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

type manifestStats struct {
	Path          string   `json:"path"`
	Kind          string   `json:"kind"`
	Partition     string   `json:"partition"`
	Entries       int      `json:"entries"`
	Hours         float64  `json:"hours"`
	Speakers      int      `json:"speakers,omitempty"`
	SampleRates   []int    `json:"sample_rates,omitempty"`
	WithFeatures  int      `json:"with_features,omitempty"`
	Perturbed     int      `json:"perturbed,omitempty"`
	FeatureFrames int64    `json:"feature_frames,omitempty"`
	Archives      []string `json:"archives,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect MANIFEST",
		Short: "Summarize a recordings, supervisions, or cuts manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			naming := manifest.Naming{Prefix: cfg.Corpus.Prefix, Suffix: cfg.Corpus.Suffix}
			stats, err := inspectManifest(naming, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}

			rows := [][]string{
				{"Path", stats.Path},
				{"Kind", stats.Kind},
				{"Partition", stats.Partition},
				{"Entries", strconv.Itoa(stats.Entries)},
				{"Hours", strconv.FormatFloat(stats.Hours, 'f', 3, 64)},
			}
			if stats.Speakers > 0 {
				rows = append(rows, []string{"Speakers", strconv.Itoa(stats.Speakers)})
			}
			if len(stats.SampleRates) > 0 {
				rows = append(rows, []string{"Sample rates", fmt.Sprint(stats.SampleRates)})
			}
			if stats.Kind == string(manifest.KindCuts) {
				rows = append(rows,
					[]string{"With features", fmt.Sprintf("%d (%s)", stats.WithFeatures, yesNo(stats.WithFeatures == stats.Entries))},
					[]string{"Perturbed", strconv.Itoa(stats.Perturbed)},
					[]string{"Feature frames", strconv.FormatInt(stats.FeatureFrames, 10)},
					[]string{"Archives", strconv.Itoa(len(stats.Archives))},
				)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, nil, shouldColorize(out)))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func inspectManifest(naming manifest.Naming, path string) (manifestStats, error) {
	kind, part, ok := naming.Parse(filepath.Base(path))
	if !ok {
		return manifestStats{}, prep.Wrap(prep.ErrConfiguration, "inspect", "parse name", fmt.Sprintf("%s does not match %s_<kind>_<part>.%s", filepath.Base(path), naming.Prefix, naming.Suffix), nil)
	}
	stats := manifestStats{Path: path, Kind: string(kind), Partition: part}
	speakers := map[string]struct{}{}
	var seconds float64

	var err error
	switch kind {
	case manifest.KindRecordings:
		rates := map[int]struct{}{}
		var recs []manifest.Recording
		recs, err = manifest.ReadFile[manifest.Recording](path)
		for _, rec := range recs {
			seconds += rec.Duration
			rates[rec.SamplingRate] = struct{}{}
		}
		stats.Entries = len(recs)
		for rate := range rates {
			stats.SampleRates = append(stats.SampleRates, rate)
		}
		sort.Ints(stats.SampleRates)
	case manifest.KindSupervisions:
		var sups []manifest.Supervision
		sups, err = manifest.ReadFile[manifest.Supervision](path)
		for _, sup := range sups {
			seconds += sup.Duration
			speakers[sup.Speaker] = struct{}{}
		}
		stats.Entries = len(sups)
	case manifest.KindCuts:
		archives := map[string]struct{}{}
		var cuts []manifest.Cut
		cuts, err = manifest.ReadFile[manifest.Cut](path)
		for _, cut := range cuts {
			seconds += cut.Duration
			for _, sup := range cut.Supervisions {
				speakers[sup.Speaker] = struct{}{}
			}
			if cut.Perturbation != nil {
				stats.Perturbed++
			}
			if cut.HasFeatures() {
				stats.WithFeatures++
				stats.FeatureFrames += int64(cut.Features.NumFrames)
				archives[cut.Features.StoragePath] = struct{}{}
			}
		}
		stats.Entries = len(cuts)
		for archive := range archives {
			stats.Archives = append(stats.Archives, archive)
		}
		sort.Strings(stats.Archives)
	}
	if err != nil {
		return manifestStats{}, prep.Wrap(prep.ErrNotFound, "inspect", "read manifest", path, err)
	}
	delete(speakers, "")
	stats.Speakers = len(speakers)
	stats.Hours = seconds / 3600
	return stats, nil
}
