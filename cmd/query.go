package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// healthCmd prints the health score of a repository.
var healthCmd = &cobra.Command{
	Use:   "health <repository>",
	Short: "Score repository health from its analyzed history",
	Long: `Compute the health score of an analyzed repository.

The overall score is the average of four dimensions, each 0-100:
activity, contributor diversity, code quality and maintenance.
Recommendations are listed for every weak dimension.

Examples:
  gitlegend health golang/go
  gitlegend health golang/go --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		repo, err := service.ResolveRepository(rootCtx, args[0])
		if err != nil {
			return err
		}
		health, err := service.GetHealthScore(rootCtx, repo.ID)
		if err != nil {
			return err
		}
		return writer().WriteHealth(repo, health)
	},
}

// commitsCmd lists scored commits.
var commitsCmd = &cobra.Command{
	Use:   "commits <repository>",
	Short: "List analyzed commits, newest first",
	Long: `List the commits persisted by previous analyses.

Examples:
  gitlegend commits golang/go --key-only
  gitlegend commits golang/go --since 2024-01-01 --limit 20
  gitlegend commits golang/go --output csv --output-file commits.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		query := schema.CommitQuery{
			KeyOnly: viper.GetBool("key-only"),
			Limit:   viper.GetInt("limit"),
		}
		if query.Limit < 0 {
			return fmt.Errorf("%w: limit cannot be negative", contract.ErrInvalidInput)
		}
		since, err := parseSinceFlag(viper.GetString("since"))
		if err != nil {
			return err
		}
		query.Since = since

		commits, err := service.ListCommits(rootCtx, args[0], query)
		if err != nil {
			return err
		}
		return writer().WriteCommits(commits)
	},
}

// contributorsCmd lists contributor rollups.
var contributorsCmd = &cobra.Command{
	Use:     "contributors <repository>",
	Short:   "List contributors by commit count",
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		contributors, err := service.ListContributors(rootCtx, args[0])
		if err != nil {
			return err
		}
		return writer().WriteContributors(contributors)
	},
}

// dashboardCmd prints store-wide statistics.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Short:   "Show repository, analysis and commit totals",
	Args:    cobra.NoArgs,
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		stats, err := service.DashboardStats(rootCtx)
		if err != nil {
			return err
		}
		return writer().WriteDashboard(stats)
	},
}

// parseSinceFlag accepts RFC 3339 timestamps or plain dates. Empty means no bound.
func parseSinceFlag(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid since %q, expected YYYY-MM-DD or RFC 3339", contract.ErrInvalidInput, raw)
}
