package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/parquet"
	"github.com/gitlegend/gitlegend/schema"
)

// ExportSummary counts the rows written by an export.
type ExportSummary struct {
	Files        []string
	Analyses     int
	Commits      int
	Contributors int
}

// ExportParquet writes every analysis run, commit and contributor in the store
// to three Parquet files prefixed by outputFile.
func ExportParquet(ctx context.Context, store contract.Store, outputFile string) (ExportSummary, error) {
	var summary ExportSummary
	if outputFile == "" {
		return summary, errors.New("--output-file is required for export command")
	}

	repos, err := store.ListRepositories(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list repositories: %w", err)
	}
	if len(repos) == 0 {
		return summary, errors.New("no repositories found to export")
	}

	var runs []parquet.AnalysisRun
	var commits []parquet.Commit
	var contributors []parquet.Contributor
	for _, repo := range repos {
		repoRuns, err := store.ListAnalyses(ctx, repo.ID)
		if err != nil {
			return summary, fmt.Errorf("failed to list analyses of %s: %w", repo.FullName, err)
		}
		repoCommits, err := store.ListCommits(ctx, repo.ID, schema.CommitQuery{})
		if err != nil {
			return summary, fmt.Errorf("failed to list commits of %s: %w", repo.FullName, err)
		}
		repoContributors, err := store.ListContributors(ctx, repo.ID)
		if err != nil {
			return summary, fmt.Errorf("failed to list contributors of %s: %w", repo.FullName, err)
		}
		runs = append(runs, parquet.ConvertAnalysisRuns(repo, repoRuns)...)
		commits = append(commits, parquet.ConvertCommits(repo, repoCommits)...)
		contributors = append(contributors, parquet.ConvertContributors(repo, repoContributors)...)
	}

	runsFile := outputFile + ".analyses.parquet"
	if err := parquet.WriteAnalysisRunsParquet(runs, runsFile); err != nil {
		return summary, fmt.Errorf("failed to write analyses: %w", err)
	}
	commitsFile := outputFile + ".commits.parquet"
	if err := parquet.WriteCommitsParquet(commits, commitsFile); err != nil {
		return summary, fmt.Errorf("failed to write commits: %w", err)
	}
	contributorsFile := outputFile + ".contributors.parquet"
	if err := parquet.WriteContributorsParquet(contributors, contributorsFile); err != nil {
		return summary, fmt.Errorf("failed to write contributors: %w", err)
	}

	summary.Files = []string{runsFile, commitsFile, contributorsFile}
	summary.Analyses = len(runs)
	summary.Commits = len(commits)
	summary.Contributors = len(contributors)
	return summary, nil
}

// PrintExportSummary prints where an export went.
func PrintExportSummary(w io.Writer, backend string, summary ExportSummary) {
	_, _ = fmt.Fprintf(w, "Exported data from %s backend\n", backend)
	_, _ = fmt.Fprintf(w, "Analysis runs: %d -> %s\n", summary.Analyses, summary.Files[0])
	_, _ = fmt.Fprintf(w, "Commits: %d -> %s\n", summary.Commits, summary.Files[1])
	_, _ = fmt.Fprintf(w, "Contributors: %d -> %s\n", summary.Contributors, summary.Files[2])
	_, _ = fmt.Fprintln(w, "\nThe Parquet files can be used with DuckDB, Pandas (via pyarrow), Spark or Arrow.")
}
