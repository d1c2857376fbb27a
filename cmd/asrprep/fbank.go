package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"asrprep/internal/config"
	"asrprep/internal/executor"
	"asrprep/internal/pipeline"
	"asrprep/internal/preflight"
	"asrprep/internal/prep"
)

func newFbankCommand(ctx *commandContext) *cobra.Command {
	var srcDir string
	var outputDir string
	var perturbSpeed string
	var numMelBins int
	var numJobs int

	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "fbank",
		Short: "Compute fbank features for every prepared partition",
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

			opts := pipeline.OptionsFromConfig(cfg)
			flags := cmd.Flags()
			if flags.Changed("src-dir") {
				opts.SrcDir, err = config.ExpandPath(srcDir)
				if err != nil {
					return prep.Wrap(prep.ErrConfiguration, "cli", "src-dir", srcDir, err)
				}
			}
			if flags.Changed("output-dir") {
				opts.OutputDir, err = config.ExpandPath(outputDir)
				if err != nil {
					return prep.Wrap(prep.ErrConfiguration, "cli", "output-dir", outputDir, err)
				}
			}
			if flags.Changed("perturb-speed") {
				opts.PerturbSpeed, err = parseBool(perturbSpeed)
				if err != nil {
					return err
				}
			}
			if flags.Changed("num-mel-bins") {
				opts.NumMelBins = numMelBins
			}
			if flags.Changed("num-jobs") {
				opts.NumJobs = numJobs
			}

			checks := preflight.RunAll(cfg, preflight.Request{
				InputDir:  opts.SrcDir,
				InputName: "Manifest directory",
				OutputDir: opts.OutputDir,
			})
			if err := preflight.Err(checks); err != nil {
				return err
			}

			ex, err := executor.New(executorConfig(cfg, opts), logger, ctx.workerArgs()...)
			if err != nil {
				return err
			}
			defer ex.Close()

			p := pipeline.New(pipeline.SettingsFromConfig(cfg), ex, logger)
			summary, runErr := p.Run(cmd.Context(), opts)

			if len(summary.Partitions) > 0 {
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderSummary(summary, shouldColorize(out)))
				fmt.Fprintln(out)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&srcDir, "src-dir", defaults.Paths.ManifestDir, "Directory holding the prepared manifests")
	cmd.Flags().StringVar(&outputDir, "output-dir", defaults.Paths.FbankDir, "Directory receiving features and cut manifests")
	cmd.Flags().StringVar(&perturbSpeed, "perturb-speed", strconv.FormatBool(defaults.Perturb.Speed), "Apply 0.9/1.1 speed perturbation to train partitions")
	cmd.Flags().IntVar(&numMelBins, "num-mel-bins", defaults.Features.NumMelBins, "Number of mel filterbank bins")
	cmd.Flags().IntVar(&numJobs, "num-jobs", defaults.Executor.NumJobs, "Maximum parallel extraction jobs")
	return cmd
}

// executorConfig sizes the worker pool from the resolved run options so
// --num-jobs bounds both the chunk count and the concurrent workers.
func executorConfig(cfg *config.Config, opts pipeline.Options) config.Executor {
	exCfg := cfg.Executor
	exCfg.NumJobs = opts.NumJobs
	return exCfg
}

// parseBool accepts the spellings users pass for boolean flags in shell
// scripts: yes/no, true/false, t/f, y/n, 1/0.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "t", "y", "1":
		return true, nil
	case "no", "false", "f", "n", "0":
		return false, nil
	default:
		return false, prep.Wrap(prep.ErrConfiguration, "cli", "perturb-speed", fmt.Sprintf("boolean value expected, got %q", value), nil)
	}
}

func renderSummary(summary pipeline.Summary, colorize bool) string {
	rows := make([][]string, 0, len(summary.Partitions))
	for _, ps := range summary.Partitions {
		status := ps.Status
		if ps.Err != nil {
			status = fmt.Sprintf("%s: %v", ps.Status, ps.Err)
		}
		rows = append(rows, []string{
			ps.Name,
			status,
			strconv.Itoa(ps.Cuts),
			strconv.Itoa(ps.Dropped),
			strconv.Itoa(ps.Jobs),
			strconv.FormatInt(ps.Frames, 10),
			formatHours(ps.Duration),
			ps.Elapsed.Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Partition", "Status", "Cuts", "Dropped", "Jobs", "Frames", "Hours", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
		colorize,
	)
}
