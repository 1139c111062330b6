package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"photoflow/internal/client"
	"photoflow/internal/domain"
	"photoflow/internal/scheduler"
	"photoflow/internal/tracker"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload a batch of photos and analyze them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			files := make([]client.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, client.File{Name: filepath.Base(path), Data: data})
			}

			tr := tracker.New(ctx.logger)
			tr.OnChange(func(item domain.UploadedItem) {
				if item.Status == domain.AnalysisAnalyzing {
					fmt.Fprintf(cmd.OutOrStdout(), "analyzing %s...\n", item.Filename)
				}
			})
			sched := scheduler.New(api, tr, ctx.logger)

			ids, err := sched.SubmitBatch(cmd.Context(), files)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d photos\n", len(ids))

			summary := sched.RunAnalysis(cmd.Context(), ids)

			rows := make([][]string, 0, len(ids))
			for _, item := range tr.Snapshot() {
				rows = append(rows, []string{
					item.ID,
					item.Filename,
					string(item.Status),
					scoreCell(item),
					tierCell(item),
					item.Error,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "Status", "Score", "Tier", "Error"}, rows, 4))
			fmt.Fprintf(cmd.OutOrStdout(), "analysis settled: %d completed, %d failed\n",
				summary.Completed, summary.Failed)
			return nil
		},
	}
	return cmd
}

func scoreCell(item domain.UploadedItem) string {
	if item.Result == nil {
		return ""
	}
	return strconv.FormatFloat(item.Result.OverallScore, 'f', 1, 64)
}

func tierCell(item domain.UploadedItem) string {
	if item.Result == nil {
		return ""
	}
	return string(item.Result.QualityTier)
}
