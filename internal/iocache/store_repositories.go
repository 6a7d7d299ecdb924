package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

const repositoryColumns = "id, github_id, name, full_name, description, language, stars, forks, private, url, created_at, last_analyzed_at"

// CreateRepository stores a new repository. Full names are unique, ignoring case.
func (s *SQLStore) CreateRepository(ctx context.Context, repo schema.Repository) error {
	if _, err := s.FindRepositoryByFullName(ctx, repo.FullName); err == nil {
		return fmt.Errorf("%s: %w", repo.FullName, contract.ErrDuplicateRepository)
	} else if !errors.Is(err, contract.ErrNotFound) {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table(repositoriesTable), repositoryColumns)
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		repo.ID, repo.GitHubID, repo.Name, repo.FullName, repo.Description, repo.Language,
		repo.Stars, repo.Forks, repo.Private, repo.URL, s.time(repo.CreatedAt), s.timePtr(repo.LastAnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert repository %s: %w", repo.FullName, err)
	}
	return nil
}

// GetRepository returns the repository with the given id.
func (s *SQLStore) GetRepository(ctx context.Context, id string) (schema.Repository, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", repositoryColumns, s.table(repositoriesTable))
	return getRepository(s.db.QueryRowContext(ctx, s.rebind(query), id), id)
}

// FindRepositoryByFullName returns the repository named owner/name, ignoring case.
func (s *SQLStore) FindRepositoryByFullName(ctx context.Context, fullName string) (schema.Repository, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(full_name) = LOWER(?)", repositoryColumns, s.table(repositoriesTable))
	return getRepository(s.db.QueryRowContext(ctx, s.rebind(query), fullName), fullName)
}

func getRepository(row *sql.Row, key string) (schema.Repository, error) {
	repo, err := scanRepository(row)
	if errors.Is(err, sql.ErrNoRows) {
		return repo, fmt.Errorf("repository %s: %w", key, contract.ErrNotFound)
	}
	if err != nil {
		return repo, fmt.Errorf("failed to get repository %s: %w", key, err)
	}
	return repo, nil
}

// ListRepositories returns all repositories, most recently imported first.
func (s *SQLStore) ListRepositories(ctx context.Context) ([]schema.Repository, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", repositoryColumns, s.table(repositoriesTable))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		results = append(results, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}
	return results, nil
}

// TouchRepositoryAnalyzed stamps the last analysis time of a repository.
func (s *SQLStore) TouchRepositoryAnalyzed(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET last_analyzed_at = ? WHERE id = ?", s.table(repositoriesTable))
	res, err := s.db.ExecContext(ctx, s.rebind(query), s.time(at), id)
	if err != nil {
		return fmt.Errorf("failed to update repository %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("repository %s: %w", id, contract.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (schema.Repository, error) {
	var repo schema.Repository
	var createdAt, lastAnalyzedAt dbTime
	err := row.Scan(
		&repo.ID, &repo.GitHubID, &repo.Name, &repo.FullName, &repo.Description, &repo.Language,
		&repo.Stars, &repo.Forks, &repo.Private, &repo.URL, &createdAt, &lastAnalyzedAt,
	)
	if err != nil {
		return repo, err
	}
	repo.CreatedAt = createdAt.Time
	repo.LastAnalyzedAt = lastAnalyzedAt.Ptr()
	return repo, nil
}
