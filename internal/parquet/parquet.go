// Package parquet exports persisted analysis data to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gitlegend/gitlegend/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRun is one analysis run of a repository.
type AnalysisRun struct {
	AnalysisID   string `parquet:"analysis_id,snappy,dict"`
	RepositoryID string `parquet:"repository_id,snappy,dict"`
	Repository   string `parquet:"repository,snappy,dict"`
	Status       string `parquet:"status,snappy,dict"`
	Progress     int32  `parquet:"progress,snappy"`

	// Error is the failure message of FAILED runs (nullable)
	Error *string `parquet:"error,optional,snappy"`

	CreatedAt time.Time `parquet:"created_at,snappy"`

	// CompletedAt is unset while the run is in flight (nullable)
	CompletedAt *time.Time `parquet:"completed_at,optional,snappy"`

	CommitsFound       int32 `parquet:"commits_found,snappy"`
	KeyCommits         int32 `parquet:"key_commits,snappy"`
	SummariesGenerated int32 `parquet:"summaries_generated,snappy"`

	// ModelUsage is the JSON-encoded model usage histogram
	ModelUsage string `parquet:"model_usage,snappy"`
}

// Commit is one scored commit of a repository.
type Commit struct {
	Repository     string    `parquet:"repository,snappy,dict"`
	SHA            string    `parquet:"sha,snappy"`
	Message        string    `parquet:"message,snappy"`
	AuthorName     string    `parquet:"author_name,snappy,dict"`
	AuthorEmail    string    `parquet:"author_email,snappy,dict"`
	AuthorLogin    *string   `parquet:"author_login,optional,snappy,dict"`
	AuthorGitHubID *string   `parquet:"author_github_id,optional,snappy,dict"`
	AuthorDate     time.Time `parquet:"author_date,snappy"`
	CommitterDate  time.Time `parquet:"committer_date,snappy"`
	Additions      int32     `parquet:"additions,snappy"`
	Deletions      int32     `parquet:"deletions,snappy"`
	FilesChanged   int32     `parquet:"files_changed,snappy"`
	Significance   float64   `parquet:"significance,snappy"`
	IsKeyCommit    bool      `parquet:"is_key_commit,snappy"`

	// Summary and ModelUsed are only set for key commits that were summarized
	Summary   *string `parquet:"summary,optional,snappy"`
	ModelUsed *string `parquet:"model_used,optional,snappy,dict"`
}

// Contributor is the rollup of one author in a repository.
type Contributor struct {
	Repository         string `parquet:"repository,snappy,dict"`
	GitHubID           string `parquet:"github_id,snappy"`
	Login              string `parquet:"login,snappy"`
	Name               string `parquet:"name,snappy"`
	Email              string `parquet:"email,snappy"`
	CommitsCount       int32  `parquet:"commits_count,snappy"`
	Additions          int32  `parquet:"additions,snappy"`
	Deletions          int32  `parquet:"deletions,snappy"`
	IsFirstContributor bool   `parquet:"is_first_contributor,snappy"`
	IsTopContributor   bool   `parquet:"is_top_contributor,snappy"`
}

// WriteAnalysisRunsParquet writes analysis runs to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCommitsParquet writes commits to a Parquet file.
func WriteCommitsParquet(data []Commit, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteContributorsParquet writes contributors to a Parquet file.
func WriteContributorsParquet(data []Contributor, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using the schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertAnalysisRuns converts runs of a repository for export.
func ConvertAnalysisRuns(repo schema.Repository, runs []schema.AnalysisRun) []AnalysisRun {
	result := make([]AnalysisRun, len(runs))
	for i, run := range runs {
		result[i] = AnalysisRun{
			AnalysisID:         run.ID,
			RepositoryID:       run.RepositoryID,
			Repository:         repo.FullName,
			Status:             string(run.Status),
			Progress:           int32(run.Progress),
			Error:              optional(run.Error),
			CreatedAt:          run.CreatedAt,
			CompletedAt:        run.CompletedAt,
			CommitsFound:       int32(run.CommitsFound),
			KeyCommits:         int32(run.KeyCommits),
			SummariesGenerated: int32(run.SummariesGenerated),
			ModelUsage:         usageJSON(run.ModelUsage),
		}
	}
	return result
}

// ConvertCommits converts commits of a repository for export.
func ConvertCommits(repo schema.Repository, commits []schema.ScoredCommit) []Commit {
	result := make([]Commit, len(commits))
	for i, c := range commits {
		result[i] = Commit{
			Repository:     repo.FullName,
			SHA:            c.SHA,
			Message:        c.Message,
			AuthorName:     c.AuthorName,
			AuthorEmail:    c.AuthorEmail,
			AuthorLogin:    optional(c.AuthorLogin),
			AuthorGitHubID: optional(c.AuthorGitHubID),
			AuthorDate:     c.AuthorDate,
			CommitterDate:  c.CommitterDate,
			Additions:      int32(c.Additions),
			Deletions:      int32(c.Deletions),
			FilesChanged:   int32(c.FilesChanged),
			Significance:   c.Significance,
			IsKeyCommit:    c.IsKeyCommit,
			Summary:        optional(c.Summary),
			ModelUsed:      optional(c.ModelUsed),
		}
	}
	return result
}

// ConvertContributors converts contributor rollups of a repository for export.
func ConvertContributors(repo schema.Repository, rollups []schema.ContributorRollup) []Contributor {
	result := make([]Contributor, len(rollups))
	for i, r := range rollups {
		result[i] = Contributor{
			Repository:         repo.FullName,
			GitHubID:           r.GitHubID,
			Login:              r.Login,
			Name:               r.Name,
			Email:              r.Email,
			CommitsCount:       int32(r.CommitsCount),
			Additions:          int32(r.Additions),
			Deletions:          int32(r.Deletions),
			IsFirstContributor: r.IsFirstContributor,
			IsTopContributor:   r.IsTopContributor,
		}
	}
	return result
}

func usageJSON(usage map[string]int) string {
	if usage == nil {
		return "{}"
	}
	data, _ := json.Marshal(usage) // map[string]int always encodes
	return string(data)
}

// optional maps empty strings to NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
