//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/iocache"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var t0 = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

// TestStoreWithMySQL runs the store scenario against a MySQL container.
func TestStoreWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "gitlegend",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/gitlegend", host, port.Port())
	runStoreScenario(t, schema.MySQLBackend, connStr)
}

// TestStoreWithPostgres runs the store scenario against a PostgreSQL container.
func TestStoreWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	runStoreScenario(t, schema.PostgreSQLBackend, connStr)
}

func runStoreScenario(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, iocache.ClearStore(backend, "", connStr))
	store, err := iocache.NewSQLStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	repo := schema.Repository{
		ID: "r1", GitHubID: 1, Name: "widgets", FullName: "acme/widgets",
		URL: "https://github.com/acme/widgets", CreatedAt: t0,
	}
	require.NoError(t, store.CreateRepository(ctx, repo))
	found, err := store.FindRepositoryByFullName(ctx, "ACME/Widgets")
	require.NoError(t, err)
	assert.Equal(t, "r1", found.ID)

	// --- Analysis lifecycle ---
	run := schema.AnalysisRun{ID: "a1", RepositoryID: "r1", Status: schema.ProcessingStatus, CreatedAt: t0}
	require.NoError(t, store.CreateAnalysis(ctx, run))
	require.NoError(t, store.UpdateProgress(ctx, "a1", schema.ProgressIngested))

	commits := []schema.ScoredCommit{
		{RawCommit: schema.RawCommit{SHA: "s1", Message: "init", AuthorName: "Ada", AuthorGitHubID: "7", AuthorDate: t0}, FilesChanged: 1},
		{RawCommit: schema.RawCommit{SHA: "s2", Message: "rewrite", AuthorName: "Ada", AuthorGitHubID: "7", AuthorDate: t0.Add(time.Hour)},
			FilesChanged: 9, Significance: 0.8, IsKeyCommit: true, Summary: "Rewrote it.", ModelUsed: "m/a"},
	}
	inserted, err := store.InsertCommits(ctx, "r1", "a1", commits)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, inserted)
	inserted, err = store.InsertCommits(ctx, "r1", "a1", commits)
	require.NoError(t, err)
	assert.Empty(t, inserted)

	rollup := []schema.ContributorRollup{{GitHubID: "7", Login: "ada", Name: "Ada", CommitsCount: 2, Additions: 10}}
	require.NoError(t, store.UpsertContributors(ctx, "r1", "a1", rollup))
	require.NoError(t, store.UpsertContributors(ctx, "r1", "a1", rollup))
	contributors, err := store.ListContributors(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, contributors, 1)
	assert.Equal(t, 4, contributors[0].CommitsCount)
	assert.Equal(t, 20, contributors[0].Additions)

	require.NoError(t, store.CompleteAnalysis(ctx, "a1", schema.AnalysisResult{
		CommitsFound: 2, KeyCommits: 1, SummariesGenerated: 1,
		ModelUsage: map[string]int{"m/a": 1}, CompletedAt: t0.Add(time.Minute),
	}))
	done, err := store.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, schema.CompletedStatus, done.Status)
	assert.Equal(t, schema.ProgressDone, done.Progress)
	assert.Equal(t, map[string]int{"m/a": 1}, done.ModelUsage)

	key, err := store.ListCommits(ctx, "r1", schema.CommitQuery{KeyOnly: true})
	require.NoError(t, err)
	require.Len(t, key, 1)
	assert.Equal(t, "Rewrote it.", key[0].Summary)

	// --- Model config versions ---
	cfg := schema.ModelConfig{Primary: "m/a", Fallback: "m/b", Enabled: []string{"m/a", "m/b"}}
	v1, err := store.SetActive(ctx, cfg, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Version)
	_, err = store.SetActive(ctx, cfg, "bob", 0)
	assert.ErrorIs(t, err, contract.ErrConfigConflict)

	// --- Status ---
	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalAnalyses)
	stats, err := store.DashboardStats(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Commits)

	require.NoError(t, store.Close())
	require.NoError(t, iocache.ClearStore(backend, "", connStr))
}
