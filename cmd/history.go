package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/junior/internal/output"
)

var (
	historyRepo  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show recent reviews",
	Long: `Show recent review outcomes from the local database.

With an id argument, shows the full stored result for that review.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return historyDetailRun(cmd.Context(), args[0])
		}
		return historyListRun(cmd.Context())
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyRepo, "repo", "", "Filter by repository (owner/repo)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows to show")
	rootCmd.AddCommand(historyCmd)
}

func historyListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	records, err := s.ListReviews(ctx, historyRepo, historyLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		ui.Info("No reviews recorded yet.")
		return nil
	}

	table := ui.Table([]string{"When", "Subject", "Outcome", "Recommendation", "Findings", "ID"})
	for _, r := range records {
		rec := "-"
		if r.Recommendation != "" {
			rec = output.RecommendationColor(string(r.Recommendation))
		}
		table.Append([]string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Subject().String(),
			string(r.Outcome),
			rec,
			fmt.Sprint(r.FindingCount),
			r.ID,
		})
	}
	table.Render()
	return nil
}

func historyDetailRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	record, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("Review %s — %s (%s)", record.ID, record.Subject().String(), record.Outcome)
	if record.Reason != "" {
		ui.Warning("Reason: %s", record.Reason)
	}

	if record.Result != nil {
		printResult(record.Result)
	}
	return nil
}
