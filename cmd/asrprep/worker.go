package main

import (
	"github.com/spf13/cobra"

	"asrprep/internal/executor"
	"asrprep/internal/logging"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var jobPath string
	var resultPath string

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run one extraction job (used by the process executor)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return executor.RunWorker(cmd.Context(), jobPath, resultPath, logging.NewComponentLogger(logger, "extract"))
		},
	}

	cmd.Flags().StringVar(&jobPath, "job", "", "Job spec file")
	cmd.Flags().StringVar(&resultPath, "result", "", "Result file to write")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}
