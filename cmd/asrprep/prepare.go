package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"asrprep/internal/config"
	"asrprep/internal/corpus"
	"asrprep/internal/preflight"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var corpusDir string
	var outputDir string
	var split bool
	var splitRatio float64

	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build recording and supervision manifests from an AudioMNIST corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("split") {
				split = cfg.Split.Enabled
			}
			if !cmd.Flags().Changed("split-ratio") {
				splitRatio = cfg.Split.Ratio
			}

			checks := preflight.RunAll(cfg, preflight.Request{
				InputDir:  corpusDir,
				InputName: "Corpus directory",
				OutputDir: outputDir,
			})
			if err := preflight.Err(checks); err != nil {
				return err
			}

			preparer := corpus.NewPreparer(corpus.OptionsFromConfig(cfg), logger)
			res, err := preparer.Prepare(cmd.Context(), corpusDir, outputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := "scanned"
			if res.Cached {
				source = "cache"
			}
			rows := [][]string{{
				"all",
				strconv.Itoa(res.Recordings.Len()),
				strconv.Itoa(res.Supervisions.Len()),
				formatHours(res.Recordings.TotalDuration()),
				strconv.Itoa(res.Skipped),
				source,
			}}

			if split {
				splitRes, err := preparer.Split(cmd.Context(), res, outputDir, splitRatio, cfg.Split.OrderKey)
				if err != nil {
					return err
				}
				if splitRes.Cached {
					fmt.Fprintln(out, "Split manifests already exist; nothing to do")
				}
				for _, part := range splitRes.Partitions {
					rows = append(rows, []string{
						part.Name,
						strconv.Itoa(part.Cuts),
						strconv.Itoa(part.Cuts),
						formatHours(part.Duration),
						"",
						"split",
					})
				}
			}

			fmt.Fprint(out, renderTable(
				[]string{"Partition", "Recordings", "Supervisions", "Hours", "Skipped", "Source"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				shouldColorize(out),
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusDir, "corpus-dir", "", "AudioMNIST corpus root (contains data/)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory receiving the manifests")
	cmd.Flags().BoolVar(&split, "split", defaults.Split.Enabled, "Also write train/test partitions")
	cmd.Flags().Float64Var(&splitRatio, "split-ratio", defaults.Split.Ratio, "Fraction of cuts assigned to train")
	_ = cmd.MarkFlagRequired("corpus-dir")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func formatHours(seconds float64) string {
	return strconv.FormatFloat(seconds/3600, 'f', 3, 64)
}
