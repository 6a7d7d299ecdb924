package iocache

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, backend schema.DatabaseBackend) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newSQLStoreWithDB(db, backend), mock
}

func TestRebind(t *testing.T) {
	pg, _ := newMockStore(t, schema.PostgreSQLBackend)
	lite, _ := newMockStore(t, schema.SQLiteBackend)

	query := "UPDATE t SET a = ? WHERE b = ? AND c IN (?, ?)"
	assert.Equal(t, "UPDATE t SET a = $1 WHERE b = $2 AND c IN ($3, $4)", pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestInsertCommitQueryPerBackend(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		prefix  string
		suffix  string
	}{
		{schema.SQLiteBackend, `INSERT OR IGNORE INTO "legend_commits"`, ""},
		{schema.MySQLBackend, "INSERT IGNORE INTO `legend_commits`", ""},
		{schema.PostgreSQLBackend, `INSERT INTO "legend_commits"`, "ON CONFLICT (repository_id, sha) DO NOTHING"},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			store, _ := newMockStore(t, tt.backend)
			query := store.insertCommitQuery()
			assert.Contains(t, query, tt.prefix)
			assert.Contains(t, query, tt.suffix)
		})
	}
}

func TestUpsertContributorQueryPerBackend(t *testing.T) {
	mysqlStore, _ := newMockStore(t, schema.MySQLBackend)
	assert.Contains(t, mysqlStore.upsertContributorQuery(), "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, mysqlStore.upsertContributorQuery(), "commits_count = commits_count + new.commits_count")

	pgStore, _ := newMockStore(t, schema.PostgreSQLBackend)
	query := pgStore.upsertContributorQuery()
	assert.Contains(t, query, "ON CONFLICT (repository_id, github_id) DO UPDATE SET")
	assert.Contains(t, query, "excluded.commits_count")
	assert.NotContains(t, query, "is_top_contributor =", "flags are left to UpdateContributorFlags")
}

func TestInsertCommitsRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t, schema.SQLiteBackend)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT OR IGNORE INTO "legend_commits"`))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(boom)
	mock.ExpectRollback()

	_, err := store.InsertCommits(context.Background(), "r1", "a1", []schema.ScoredCommit{
		scored("c1", t0, false), scored("c2", t0, false),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "c2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCommitsSkipsExistingRows(t *testing.T) {
	store, mock := newMockStore(t, schema.PostgreSQLBackend)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("ON CONFLICT (repository_id, sha) DO NOTHING"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := store.InsertCommits(context.Background(), "r1", "a1", []schema.ScoredCommit{
		scored("old", t0, false), scored("new", t0, false),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveConflictRollsBack(t *testing.T) {
	store, mock := newMockStore(t, schema.PostgreSQLBackend)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectRollback()

	_, err := store.SetActive(context.Background(), schema.ModelConfig{Primary: "m/a"}, "alice", 2)
	assert.ErrorIs(t, err, contract.ErrConfigConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysisUsesPositionalParams(t *testing.T) {
	store, mock := newMockStore(t, schema.PostgreSQLBackend)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	columns := []string{"id", "repository_id", "status", "progress", "error", "created_at", "completed_at",
		"commits_found", "key_commits", "summaries_generated", "model_usage"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "legend_analyses" WHERE id = $1`)).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a1", "r1", "PROCESSING", 30, "", created, nil, 0, 0, 0, `{"m/a":1}`))

	run, err := store.GetAnalysis(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, schema.ProcessingStatus, run.Status)
	assert.Equal(t, 30, run.Progress)
	assert.True(t, run.CreatedAt.Equal(created))
	assert.Nil(t, run.CompletedAt)
	assert.Equal(t, map[string]int{"m/a": 1}, run.ModelUsage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardStatsError(t *testing.T) {
	store, mock := newMockStore(t, schema.MySQLBackend)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `legend_repositories`")).
		WillReturnError(errors.New("connection reset"))

	_, err := store.DashboardStats(context.Background(), t0)
	assert.ErrorContains(t, err, "failed to compute dashboard stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailAnalysisOnTerminalRun(t *testing.T) {
	store, mock := newMockStore(t, schema.SQLiteBackend)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "legend_analyses" SET status = ?, error = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.FailAnalysis(context.Background(), "a1", "boom", t0)
	assert.ErrorIs(t, err, contract.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
