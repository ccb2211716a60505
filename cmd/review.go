package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/output"
	"github.com/joescharf/junior/internal/selector"
	"github.com/joescharf/junior/internal/source"
)

var (
	reviewSHA     string
	reviewPublish bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <owner/repo> <number>",
	Short: "Review one pull request now",
	Long: `Run a full review of a single pull request without going through
the webhook server. Findings are printed as a table; use --publish to
post the review to GitHub instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[1])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid pull request number: %q", args[1])
		}
		return reviewRun(cmd.Context(), args[0], number)
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewSHA, "sha", "", "Head commit to review (default: current head of the PR)")
	reviewCmd.Flags().BoolVar(&reviewPublish, "publish", false, "Post the review to GitHub instead of printing it")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, repo string, number int) error {
	if !strings.Contains(repo, "/") {
		return fmt.Errorf("repository must be owner/repo, got %q", repo)
	}

	meta, err := source.FetchPRMeta(ctx, repo, number)
	if err != nil {
		return err
	}
	if meta.State != "open" {
		ui.Warning("Pull request %s#%d is %s", repo, number, meta.State)
	}

	sha := reviewSHA
	if sha == "" {
		sha = meta.HeadSHA
	}

	subject := models.ReviewSubject{
		Host:    viper.GetString("webhook.host"),
		Repo:    repo,
		Number:  number,
		HeadSHA: sha,
	}
	pr := analyzer.PRInfo{
		Title:       meta.Title,
		Description: meta.Body,
		BaseBranch:  meta.BaseBranch,
		HeadBranch:  meta.HeadBranch,
	}

	pipeline, err := buildPipeline()
	if err != nil {
		return err
	}

	ui.Info("Reviewing %s", subject.String())
	result, err := pipeline.Run(ctx, subject, pr)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	s, err := getStore()
	if err == nil {
		outcome := models.Outcome{Kind: models.OutcomeCompleted, Result: result}
		if err := s.RecordOutcome(ctx, subject, outcome); err != nil {
			ui.Warning("Could not record outcome: %v", err)
		}
	}

	if reviewPublish {
		outcome := models.Outcome{Kind: models.OutcomeCompleted, Result: result}
		if err := buildPublisher().Publish(ctx, subject, outcome); err != nil {
			return fmt.Errorf("publish review: %w", err)
		}
		ui.Success("Review published to %s#%d", repo, number)
		return nil
	}

	printResult(result)
	return nil
}

func printResult(result *models.ReviewResult) {
	rec := string(result.Recommendation)
	ui.Info("Recommendation: %s (%d findings)", output.RecommendationColor(rec), len(result.Findings))

	if len(result.Findings) > 0 {
		table := ui.Table([]string{"Severity", "Category", "Location", "Message"})
		for _, f := range result.Findings {
			location := "-"
			if f.Anchored() {
				location = fmt.Sprintf("%s:%d", f.Path, f.Line)
			} else if f.Path != "" {
				location = f.Path
			}
			table.Append([]string{
				output.SeverityColor(string(f.Severity)),
				string(f.Category),
				location,
				f.Message,
			})
		}
		table.Render()
	}

	for _, sf := range result.StageFailures {
		ui.Warning("Stage %s did not complete: %s", sf.Category, sf.Reason)
	}

	if verbose {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, selector.Summarize(result))
	}
}
