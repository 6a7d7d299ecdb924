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

const modelConfigColumns = "version, primary_model, fallback_model, enabled_models, updated_by, created_at"

// GetActive returns the latest saved model config.
func (s *SQLStore) GetActive(ctx context.Context) (schema.ModelConfigVersion, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY version DESC LIMIT 1", modelConfigColumns, s.table(modelConfigsTable))
	v, err := scanModelConfig(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("model config: %w", contract.ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("failed to get active model config: %w", err)
	}
	return v, nil
}

// SetActive appends a new config version. With baseVersion >= 0 the write only
// succeeds when baseVersion is still the latest version (0 = nothing saved yet).
func (s *SQLStore) SetActive(ctx context.Context, cfg schema.ModelConfig, updatedBy string, baseVersion int64) (schema.ModelConfigVersion, error) {
	enabled, err := json.Marshal(cfg.Enabled)
	if err != nil {
		return schema.ModelConfigVersion{}, fmt.Errorf("failed to marshal enabled models: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.ModelConfigVersion{}, fmt.Errorf("failed to begin config update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", s.table(modelConfigsTable))
	if err := tx.QueryRowContext(ctx, query).Scan(&current); err != nil {
		return schema.ModelConfigVersion{}, fmt.Errorf("failed to read config version: %w", err)
	}
	if baseVersion >= 0 && baseVersion != current {
		return schema.ModelConfigVersion{}, fmt.Errorf("base version %d, latest %d: %w", baseVersion, current, contract.ErrConfigConflict)
	}

	v := schema.ModelConfigVersion{
		ModelConfig: cfg,
		Version:     current + 1,
		UpdatedBy:   updatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)", s.table(modelConfigsTable), modelConfigColumns)
	if _, err := tx.ExecContext(ctx, s.rebind(insert),
		v.Version, cfg.Primary, cfg.Fallback, string(enabled), updatedBy, s.time(v.CreatedAt),
	); err != nil {
		return schema.ModelConfigVersion{}, fmt.Errorf("failed to insert config version %d: %w", v.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return schema.ModelConfigVersion{}, fmt.Errorf("failed to commit config update: %w", err)
	}
	return v, nil
}

// ListConfigHistory returns saved versions, newest first. A limit <= 0 returns all.
func (s *SQLStore) ListConfigHistory(ctx context.Context, limit int) ([]schema.ModelConfigVersion, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY version DESC", modelConfigColumns, s.table(modelConfigsTable))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query config history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ModelConfigVersion
	for rows.Next() {
		v, err := scanModelConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config version: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating config history: %w", err)
	}
	return results, nil
}

func scanModelConfig(row rowScanner) (schema.ModelConfigVersion, error) {
	var v schema.ModelConfigVersion
	var enabled string
	var createdAt dbTime
	if err := row.Scan(&v.Version, &v.Primary, &v.Fallback, &enabled, &v.UpdatedBy, &createdAt); err != nil {
		return v, err
	}
	v.CreatedAt = createdAt.Time
	if err := json.Unmarshal([]byte(enabled), &v.Enabled); err != nil {
		return v, fmt.Errorf("failed to decode enabled models: %w", err)
	}
	return v, nil
}
