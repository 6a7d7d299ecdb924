package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
)

// cancelGrace bounds how long an interrupted run gets to record its failure.
const cancelGrace = 10 * time.Second

// analyzeCmd runs the analysis pipeline for one repository.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <repository>",
	Short: "Ingest, score and summarize the commit history of a repository",
	Long: `Run the analysis pipeline for an imported repository.

The pipeline fetches up to commit-cap recent commits, scores their
significance, summarizes key commits with the configured AI models and
rolls contributors up. Progress is reported at 10, 30, 60, 80 and 100%.

Only one analysis per repository can run at a time. Interrupting the command
cancels the run and marks it FAILED.

Examples:
  gitlegend analyze golang/go
  GITLEGEND_OPENROUTER_API_KEY=... gitlegend analyze https://github.com/spf13/cobra
  gitlegend analyze spf13/cobra --model openai/gpt-4o-mini`,
	Args:    cobra.ExactArgs(1),
	PreRunE: progressServiceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		task, err := service.StartAnalysis(rootCtx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Started analysis %s\n", task.AnalysisID)

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt)
		defer stop()

		runErr := task.Wait(ctx)
		if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
			contract.LogWarn("Interrupted, canceling analysis", nil)
			task.Cancel()
			graceCtx, cancel := context.WithTimeout(rootCtx, cancelGrace)
			defer cancel()
			runErr = task.Wait(graceCtx)
		}

		run, err := service.GetAnalysis(rootCtx, task.AnalysisID)
		if err != nil {
			return err
		}
		if err := writer().WriteAnalyses([]schema.AnalysisRun{run}); err != nil {
			return err
		}
		return runErr
	},
}

// analysisCmd groups analysis run queries.
var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Inspect analysis runs",
	Long: `Inspect analysis runs and their progress.

Examples:
  gitlegend analysis status 6f1c...
  gitlegend analysis list golang/go`,
}

// analysisStatusCmd shows one run.
var analysisStatusCmd = &cobra.Command{
	Use:     "status <analysis-id>",
	Short:   "Show the status and progress of an analysis run",
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		run, err := service.GetAnalysis(rootCtx, args[0])
		if err != nil {
			return err
		}
		return writer().WriteAnalyses([]schema.AnalysisRun{run})
	},
}

// analysisListCmd lists the runs of a repository.
var analysisListCmd = &cobra.Command{
	Use:     "list <repository>",
	Short:   "List the analysis runs of a repository, newest first",
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		runs, err := service.ListAnalyses(rootCtx, args[0])
		if err != nil {
			return err
		}
		return writer().WriteAnalyses(runs)
	},
}

