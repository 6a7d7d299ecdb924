package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

const commitColumns = `sha, message, author_name, author_email, author_login, author_avatar, author_github_id,
	author_date, committer_name, committer_email, committer_date, additions, deletions, files_changed, files,
	significance, is_key_commit, summary, model_used`

const contributorColumns = `github_id, login, name, email, avatar, commits_count, additions, deletions,
	is_first_contributor, is_top_contributor`

// InsertCommits inserts commits in one transaction, skipping SHAs the repository
// already has, and returns the SHAs that were inserted in input order.
func (s *SQLStore) InsertCommits(ctx context.Context, repositoryID, analysisID string, commits []schema.ScoredCommit) ([]string, error) {
	if len(commits) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin commit insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(s.insertCommitQuery()))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare commit insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var inserted []string
	for _, c := range commits {
		files, err := json.Marshal(nonNilFiles(c.Files))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal files of %s: %w", c.SHA, err)
		}
		res, err := stmt.ExecContext(ctx,
			repositoryID, analysisID, c.SHA, c.Message, c.AuthorName, c.AuthorEmail, c.AuthorLogin, c.AuthorAvatar,
			c.AuthorGitHubID, s.time(c.AuthorDate), c.CommitterName, c.CommitterEmail, s.time(c.CommitterDate),
			c.Additions, c.Deletions, c.FilesChanged, string(files), c.Significance, c.IsKeyCommit, c.Summary, c.ModelUsed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert commit %s: %w", c.SHA, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("failed to read insert result for %s: %w", c.SHA, err)
		} else if n > 0 {
			inserted = append(inserted, c.SHA)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit commit insert: %w", err)
	}
	return inserted, nil
}

// insertCommitQuery returns an insert that silently skips existing (repository, sha) keys.
func (s *SQLStore) insertCommitQuery() string {
	cols := "repository_id, analysis_id, " + commitColumns
	values := "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	table := s.table(commitsTable)

	switch s.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) %s", table, cols, values)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf("INSERT INTO %s (%s) %s ON CONFLICT (repository_id, sha) DO NOTHING", table, cols, values)
	default: // SQLite
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) %s", table, cols, values)
	}
}

// ListCommits returns commits of a repository, newest first.
func (s *SQLStore) ListCommits(ctx context.Context, repositoryID string, q schema.CommitQuery) ([]schema.ScoredCommit, error) {
	var where strings.Builder
	where.WriteString("repository_id = ?")
	args := []any{repositoryID}
	if q.KeyOnly {
		where.WriteString(" AND is_key_commit = ?")
		args = append(args, true)
	}
	if !q.Since.IsZero() {
		where.WriteString(" AND author_date >= ?")
		args = append(args, s.time(q.Since))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY author_date DESC, sha ASC",
		commitColumns, s.table(commitsTable), where.String())
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScoredCommit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commits: %w", err)
	}
	return results, nil
}

// GetCommit returns one commit by its full SHA.
func (s *SQLStore) GetCommit(ctx context.Context, repositoryID, sha string) (schema.ScoredCommit, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE repository_id = ? AND sha = ?", commitColumns, s.table(commitsTable))
	c, err := scanCommit(s.db.QueryRowContext(ctx, s.rebind(query), repositoryID, sha))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("commit %s: %w", sha, contract.ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("failed to get commit %s: %w", sha, err)
	}
	return c, nil
}

func scanCommit(row rowScanner) (schema.ScoredCommit, error) {
	var c schema.ScoredCommit
	var authorDate, committerDate dbTime
	var files string
	err := row.Scan(
		&c.SHA, &c.Message, &c.AuthorName, &c.AuthorEmail, &c.AuthorLogin, &c.AuthorAvatar, &c.AuthorGitHubID,
		&authorDate, &c.CommitterName, &c.CommitterEmail, &committerDate, &c.Additions, &c.Deletions,
		&c.FilesChanged, &files, &c.Significance, &c.IsKeyCommit, &c.Summary, &c.ModelUsed,
	)
	if err != nil {
		return c, err
	}
	c.AuthorDate = authorDate.Time
	c.CommitterDate = committerDate.Time
	if files != "" {
		if err := json.Unmarshal([]byte(files), &c.Files); err != nil {
			return c, fmt.Errorf("failed to decode files of %s: %w", c.SHA, err)
		}
	}
	if len(c.Files) == 0 {
		c.Files = nil
	}
	return c, nil
}

func nonNilFiles(files []schema.ChangedFile) []schema.ChangedFile {
	if files == nil {
		return []schema.ChangedFile{}
	}
	return files
}

// UpsertContributors adds the rollups to the stored totals of each contributor.
// Identity fields are overwritten; rank flags are left to UpdateContributorFlags.
func (s *SQLStore) UpsertContributors(ctx context.Context, repositoryID, analysisID string, rollups []schema.ContributorRollup) error {
	if len(rollups) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin contributor upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(s.upsertContributorQuery()))
	if err != nil {
		return fmt.Errorf("failed to prepare contributor upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rollups {
		_, err := stmt.ExecContext(ctx,
			repositoryID, analysisID, r.GitHubID, r.Login, r.Name, r.Email, r.Avatar,
			r.CommitsCount, r.Additions, r.Deletions, r.IsFirstContributor, r.IsTopContributor,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert contributor %s: %w", r.GitHubID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contributor upsert: %w", err)
	}
	return nil
}

// upsertContributorQuery returns an insert that increments totals on a (repository, github_id) conflict.
func (s *SQLStore) upsertContributorQuery() string {
	table := s.table(contributorsTable)
	insert := fmt.Sprintf(`INSERT INTO %s (repository_id, analysis_id, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table, contributorColumns)

	switch s.backend {
	case schema.MySQLBackend:
		return insert + ` AS new ON DUPLICATE KEY UPDATE
			analysis_id = new.analysis_id, login = new.login, name = new.name, email = new.email, avatar = new.avatar,
			commits_count = commits_count + new.commits_count,
			additions = additions + new.additions,
			deletions = deletions + new.deletions`
	default: // SQLite and PostgreSQL
		return insert + fmt.Sprintf(` ON CONFLICT (repository_id, github_id) DO UPDATE SET
			analysis_id = excluded.analysis_id, login = excluded.login, name = excluded.name,
			email = excluded.email, avatar = excluded.avatar,
			commits_count = %[1]s.commits_count + excluded.commits_count,
			additions = %[1]s.additions + excluded.additions,
			deletions = %[1]s.deletions + excluded.deletions`, table)
	}
}

// UpdateContributorFlags overwrites the rank flags of stored contributors.
func (s *SQLStore) UpdateContributorFlags(ctx context.Context, repositoryID string, rollups []schema.ContributorRollup) error {
	if len(rollups) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin flag update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("UPDATE %s SET is_first_contributor = ?, is_top_contributor = ? WHERE repository_id = ? AND github_id = ?",
		s.table(contributorsTable))
	stmt, err := tx.PrepareContext(ctx, s.rebind(query))
	if err != nil {
		return fmt.Errorf("failed to prepare flag update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rollups {
		if _, err := stmt.ExecContext(ctx, r.IsFirstContributor, r.IsTopContributor, repositoryID, r.GitHubID); err != nil {
			return fmt.Errorf("failed to update flags of %s: %w", r.GitHubID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flag update: %w", err)
	}
	return nil
}

// ListContributors returns the contributors of a repository by commit count, highest first.
func (s *SQLStore) ListContributors(ctx context.Context, repositoryID string) ([]schema.ContributorRollup, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE repository_id = ? ORDER BY commits_count DESC, github_id ASC",
		contributorColumns, s.table(contributorsTable))
	rows, err := s.db.QueryContext(ctx, s.rebind(query), repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ContributorRollup
	for rows.Next() {
		var r schema.ContributorRollup
		if err := rows.Scan(
			&r.GitHubID, &r.Login, &r.Name, &r.Email, &r.Avatar, &r.CommitsCount, &r.Additions, &r.Deletions,
			&r.IsFirstContributor, &r.IsTopContributor,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contributor: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributors: %w", err)
	}
	return results, nil
}
