package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

const analysisColumns = "id, repository_id, status, progress, error, created_at, completed_at, commits_found, key_commits, summaries_generated, model_usage"

// CreateAnalysis stores a new analysis run.
func (s *SQLStore) CreateAnalysis(ctx context.Context, run schema.AnalysisRun) error {
	usage, err := marshalUsage(run.ModelUsage)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table(analysesTable), analysisColumns)
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		run.ID, run.RepositoryID, string(run.Status), run.Progress, run.Error,
		s.time(run.CreatedAt), s.timePtr(run.CompletedAt),
		run.CommitsFound, run.KeyCommits, run.SummariesGenerated, usage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis %s: %w", run.ID, err)
	}
	return nil
}

// GetAnalysis returns the analysis run with the given id.
func (s *SQLStore) GetAnalysis(ctx context.Context, id string) (schema.AnalysisRun, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", analysisColumns, s.table(analysesTable))
	run, err := scanAnalysis(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("analysis %s: %w", id, contract.ErrNotFound)
	}
	if err != nil {
		return run, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}
	return run, nil
}

// ListAnalyses returns the runs of a repository, newest first.
func (s *SQLStore) ListAnalyses(ctx context.Context, repositoryID string) ([]schema.AnalysisRun, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE repository_id = ? ORDER BY created_at DESC", analysisColumns, s.table(analysesTable))
	rows, err := s.db.QueryContext(ctx, s.rebind(query), repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRun
	for rows.Next() {
		run, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		results = append(results, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}
	return results, nil
}

// FindActiveAnalysis returns the newest PROCESSING run of a repository.
func (s *SQLStore) FindActiveAnalysis(ctx context.Context, repositoryID string) (schema.AnalysisRun, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE repository_id = ? AND status = ? ORDER BY created_at DESC LIMIT 1",
		analysisColumns, s.table(analysesTable))
	run, err := scanAnalysis(s.db.QueryRowContext(ctx, s.rebind(query), repositoryID, string(schema.ProcessingStatus)))
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("active analysis for %s: %w", repositoryID, contract.ErrNotFound)
	}
	if err != nil {
		return run, fmt.Errorf("failed to find active analysis for %s: %w", repositoryID, err)
	}
	return run, nil
}

// UpdateProgress raises the progress of a PROCESSING run. Lower values are ignored.
func (s *SQLStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	query := fmt.Sprintf("UPDATE %s SET progress = ? WHERE id = ? AND status = ? AND progress < ?", s.table(analysesTable))
	res, err := s.db.ExecContext(ctx, s.rebind(query), progress, id, string(schema.ProcessingStatus), progress)
	if err != nil {
		return fmt.Errorf("failed to update progress of analysis %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either nothing to raise or the run is gone.
		if _, err := s.GetAnalysis(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CompleteAnalysis marks a PROCESSING run COMPLETED with its final counters.
func (s *SQLStore) CompleteAnalysis(ctx context.Context, id string, result schema.AnalysisResult) error {
	usage, err := marshalUsage(result.ModelUsage)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET status = ?, progress = ?, completed_at = ?, commits_found = ?,
		key_commits = ?, summaries_generated = ?, model_usage = ? WHERE id = ? AND status = ?`, s.table(analysesTable))
	res, err := s.db.ExecContext(ctx, s.rebind(query),
		string(schema.CompletedStatus), schema.ProgressDone, s.time(result.CompletedAt), result.CommitsFound,
		result.KeyCommits, result.SummariesGenerated, usage, id, string(schema.ProcessingStatus),
	)
	if err != nil {
		return fmt.Errorf("failed to complete analysis %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("processing analysis %s: %w", id, contract.ErrNotFound)
	}
	return nil
}

// FailAnalysis marks a run FAILED unless it already reached a terminal state.
func (s *SQLStore) FailAnalysis(ctx context.Context, id string, message string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)", s.table(analysesTable))
	res, err := s.db.ExecContext(ctx, s.rebind(query),
		string(schema.FailedStatus), message, s.time(at), id,
		string(schema.PendingStatus), string(schema.ProcessingStatus),
	)
	if err != nil {
		return fmt.Errorf("failed to mark analysis %s as failed: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("active analysis %s: %w", id, contract.ErrNotFound)
	}
	return nil
}

func scanAnalysis(row rowScanner) (schema.AnalysisRun, error) {
	var run schema.AnalysisRun
	var status, usage string
	var createdAt, completedAt dbTime
	err := row.Scan(
		&run.ID, &run.RepositoryID, &status, &run.Progress, &run.Error, &createdAt, &completedAt,
		&run.CommitsFound, &run.KeyCommits, &run.SummariesGenerated, &usage,
	)
	if err != nil {
		return run, err
	}
	run.Status = schema.AnalysisStatus(status)
	run.CreatedAt = createdAt.Time
	run.CompletedAt = completedAt.Ptr()
	if usage != "" {
		if err := json.Unmarshal([]byte(usage), &run.ModelUsage); err != nil {
			return run, fmt.Errorf("failed to decode model usage: %w", err)
		}
	}
	return run, nil
}

func marshalUsage(usage map[string]int) (string, error) {
	if usage == nil {
		usage = map[string]int{}
	}
	data, err := json.Marshal(usage)
	if err != nil {
		return "", fmt.Errorf("failed to marshal model usage: %w", err)
	}
	return string(data), nil
}
