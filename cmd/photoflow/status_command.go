package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Query an enhancement job over the REST status endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			job, err := api.JobStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job:      %s\n", job.ID)
			fmt.Fprintf(out, "status:   %s\n", job.Status)
			fmt.Fprintf(out, "progress: %d/%d (%.1f%%)\n", job.Progress.Current, job.Progress.Total, job.Percent)
			if job.Message != "" {
				fmt.Fprintf(out, "message:  %s\n", job.Message)
			}
			if job.Summary != nil {
				fmt.Fprintf(out, "result:   %d enhanced, %d failed in %.1fs\n",
					job.Summary.Successful, job.Summary.Failed, job.Summary.DurationSeconds)
			}
			return nil
		},
	}
}
