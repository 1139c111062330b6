package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photoflow/internal/client"
	"photoflow/internal/domain"
	"photoflow/internal/progress"
)

func newEnhanceCommand(ctx *commandContext) *cobra.Command {
	var presetFlag string

	cmd := &cobra.Command{
		Use:   "enhance <image-id>...",
		Short: "Start a batch enhancement job and follow its progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			jobID, err := api.StartEnhancement(cmd.Context(), client.StartEnhancementRequest{
				ImageIDs: args,
				Preset:   presetFlag,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s queued (%d photos)\n", jobID, len(args))

			sub := progress.New(progress.Options{
				Logger: &ctx.logger,
				OnUpdate: func(job domain.BatchJob) {
					fmt.Fprintf(cmd.OutOrStdout(), "[%5.1f%%] %-10s %s\n",
						job.Percent, job.Status, job.Message)
				},
			})
			if err := sub.Attach(cmd.Context(), api.StreamURL(jobID)); err != nil {
				return fmt.Errorf("attach progress stream: %w", err)
			}
			defer sub.Detach()

			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-sub.Done():
			}

			switch sub.Outcome() {
			case progress.OutcomeFinished:
				if snapshot, ok := sub.Snapshot(); ok && snapshot.Summary != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "finished: %d enhanced, %d failed in %.1fs\n",
						snapshot.Summary.Successful, snapshot.Summary.Failed, snapshot.Summary.DurationSeconds)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "finished")
				}
				return nil
			case progress.OutcomeFailed:
				return fmt.Errorf("job %s failed", jobID)
			default:
				// The stream ended before a terminal status; the job may still
				// be running server-side.
				fmt.Fprintf(cmd.OutOrStdout(),
					"connection lost before the job settled; run `photoflow status %s` to check the outcome\n", jobID)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&presetFlag, "preset", "p", "professional", "Enhancement preset")
	return cmd
}
