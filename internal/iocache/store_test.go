package iocache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "legend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRepository(t *testing.T, store *SQLStore, id, fullName string) schema.Repository {
	t.Helper()
	repo := schema.Repository{
		ID: id, GitHubID: 42, Name: filepath.Base(fullName), FullName: fullName,
		Description: "widgets", Language: "Go", Stars: 5, Forks: 1, URL: "https://github.com/" + fullName,
		CreatedAt: t0,
	}
	require.NoError(t, store.CreateRepository(context.Background(), repo))
	return repo
}

func scored(sha string, at time.Time, key bool) schema.ScoredCommit {
	return schema.ScoredCommit{
		RawCommit: schema.RawCommit{
			SHA: sha, Message: "msg " + sha, AuthorName: "Ada", AuthorEmail: "ada@example.com",
			AuthorLogin: "ada", AuthorGitHubID: "7", AuthorDate: at, CommitterName: "Ada",
			CommitterDate: at, Additions: 3, Deletions: 1,
			Files: []schema.ChangedFile{{Filename: "main.go", Additions: 3, Deletions: 1, Changes: 4}},
		},
		FilesChanged: 1,
		Significance: 0.5,
		IsKeyCommit:  key,
	}
}

func TestRepositories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := seedRepository(t, store, "r1", "acme/widgets")

	got, err := store.GetRepository(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, repo.FullName, got.FullName)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.Nil(t, got.LastAnalyzedAt)

	t.Run("find ignores case", func(t *testing.T) {
		found, err := store.FindRepositoryByFullName(ctx, "ACME/Widgets")
		require.NoError(t, err)
		assert.Equal(t, "r1", found.ID)
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		err := store.CreateRepository(ctx, schema.Repository{ID: "r2", FullName: "Acme/widgets", CreatedAt: t0})
		assert.ErrorIs(t, err, contract.ErrDuplicateRepository)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.GetRepository(ctx, "nope")
		assert.ErrorIs(t, err, contract.ErrNotFound)
		assert.ErrorIs(t, store.TouchRepositoryAnalyzed(ctx, "nope", t0), contract.ErrNotFound)
	})

	t.Run("touch and list", func(t *testing.T) {
		seedRepository(t, store, "r3", "acme/gadgets")
		require.NoError(t, store.TouchRepositoryAnalyzed(ctx, "r1", t0.Add(time.Hour)))

		repos, err := store.ListRepositories(ctx)
		require.NoError(t, err)
		require.Len(t, repos, 2)

		got, err := store.GetRepository(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, got.LastAnalyzedAt)
		assert.True(t, got.LastAnalyzedAt.Equal(t0.Add(time.Hour)))
	})
}

func TestAnalyses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRepository(t, store, "r1", "acme/widgets")

	run := schema.AnalysisRun{ID: "a1", RepositoryID: "r1", Status: schema.ProcessingStatus, CreatedAt: t0}
	require.NoError(t, store.CreateAnalysis(ctx, run))

	active, err := store.FindActiveAnalysis(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "a1", active.ID)

	t.Run("progress never decreases", func(t *testing.T) {
		require.NoError(t, store.UpdateProgress(ctx, "a1", 30))
		require.NoError(t, store.UpdateProgress(ctx, "a1", 10))
		got, err := store.GetAnalysis(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 30, got.Progress)
		assert.ErrorIs(t, store.UpdateProgress(ctx, "missing", 50), contract.ErrNotFound)
	})

	t.Run("complete", func(t *testing.T) {
		done := t0.Add(time.Minute)
		require.NoError(t, store.CompleteAnalysis(ctx, "a1", schema.AnalysisResult{
			CommitsFound: 12, KeyCommits: 3, SummariesGenerated: 2,
			ModelUsage: map[string]int{"m/a": 2}, CompletedAt: done,
		}))
		got, err := store.GetAnalysis(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, schema.CompletedStatus, got.Status)
		assert.Equal(t, 100, got.Progress)
		assert.Equal(t, 12, got.CommitsFound)
		assert.Equal(t, map[string]int{"m/a": 2}, got.ModelUsage)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(done))

		_, err = store.FindActiveAnalysis(ctx, "r1")
		assert.ErrorIs(t, err, contract.ErrNotFound)
	})

	t.Run("terminal runs stay terminal", func(t *testing.T) {
		assert.ErrorIs(t, store.FailAnalysis(ctx, "a1", "late", t0), contract.ErrNotFound)
		assert.ErrorIs(t, store.CompleteAnalysis(ctx, "a1", schema.AnalysisResult{CompletedAt: t0}), contract.ErrNotFound)
		require.NoError(t, store.UpdateProgress(ctx, "a1", 100))
		got, err := store.GetAnalysis(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, schema.CompletedStatus, got.Status)
		assert.Empty(t, got.Error)
	})

	t.Run("fail", func(t *testing.T) {
		require.NoError(t, store.CreateAnalysis(ctx, schema.AnalysisRun{
			ID: "a2", RepositoryID: "r1", Status: schema.ProcessingStatus, CreatedAt: t0.Add(time.Hour),
		}))
		require.NoError(t, store.FailAnalysis(ctx, "a2", "upstream exploded", t0.Add(2*time.Hour)))
		got, err := store.GetAnalysis(ctx, "a2")
		require.NoError(t, err)
		assert.Equal(t, schema.FailedStatus, got.Status)
		assert.Equal(t, "upstream exploded", got.Error)

		runs, err := store.ListAnalyses(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "a2", runs[0].ID, "newest first")
	})
}

func TestCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRepository(t, store, "r1", "acme/widgets")

	commits := []schema.ScoredCommit{
		scored("c3", t0.Add(3*time.Hour), true),
		scored("c2", t0.Add(2*time.Hour), false),
		scored("c1", t0.Add(time.Hour), true),
	}
	commits[2].Summary = "Adds the thing."
	commits[2].ModelUsed = "m/a"

	inserted, err := store.InsertCommits(ctx, "r1", "a1", commits)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2", "c1"}, inserted)

	t.Run("duplicates skipped", func(t *testing.T) {
		again := append([]schema.ScoredCommit{scored("c4", t0.Add(4*time.Hour), false)}, commits...)
		inserted, err := store.InsertCommits(ctx, "r1", "a2", again)
		require.NoError(t, err)
		assert.Equal(t, []string{"c4"}, inserted)

		inserted, err = store.InsertCommits(ctx, "r1", "a3", again)
		require.NoError(t, err)
		assert.Empty(t, inserted)
	})

	t.Run("same sha in another repository", func(t *testing.T) {
		seedRepository(t, store, "r2", "acme/gadgets")
		inserted, err := store.InsertCommits(ctx, "r2", "b1", commits[:1])
		require.NoError(t, err)
		assert.Equal(t, []string{"c3"}, inserted)
	})

	t.Run("list newest first", func(t *testing.T) {
		got, err := store.ListCommits(ctx, "r1", schema.CommitQuery{})
		require.NoError(t, err)
		shas := make([]string, len(got))
		for i, c := range got {
			shas[i] = c.SHA
		}
		assert.Equal(t, []string{"c4", "c3", "c2", "c1"}, shas)
	})

	t.Run("filters", func(t *testing.T) {
		key, err := store.ListCommits(ctx, "r1", schema.CommitQuery{KeyOnly: true})
		require.NoError(t, err)
		require.Len(t, key, 2)
		assert.Equal(t, "c3", key[0].SHA)

		since, err := store.ListCommits(ctx, "r1", schema.CommitQuery{Since: t0.Add(2 * time.Hour)})
		require.NoError(t, err)
		assert.Len(t, since, 3)

		limited, err := store.ListCommits(ctx, "r1", schema.CommitQuery{Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "c4", limited[0].SHA)
	})

	t.Run("get", func(t *testing.T) {
		got, err := store.GetCommit(ctx, "r1", "c1")
		require.NoError(t, err)
		assert.Equal(t, "Adds the thing.", got.Summary)
		assert.Equal(t, "m/a", got.ModelUsed)
		assert.True(t, got.IsKeyCommit)
		assert.InDelta(t, 0.5, got.Significance, 1e-9)
		assert.True(t, got.AuthorDate.Equal(t0.Add(time.Hour)))
		assert.Equal(t, []schema.ChangedFile{{Filename: "main.go", Additions: 3, Deletions: 1, Changes: 4}}, got.Files)

		_, err = store.GetCommit(ctx, "r1", "zzz")
		assert.ErrorIs(t, err, contract.ErrNotFound)
	})

	t.Run("empty insert", func(t *testing.T) {
		inserted, err := store.InsertCommits(ctx, "r1", "a9", nil)
		require.NoError(t, err)
		assert.Empty(t, inserted)
	})
}

func TestContributors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedRepository(t, store, "r1", "acme/widgets")

	require.NoError(t, store.UpsertContributors(ctx, "r1", "a1", []schema.ContributorRollup{
		{GitHubID: "7", Login: "ada", Name: "Ada", CommitsCount: 3, Additions: 30, Deletions: 3},
		{GitHubID: "8", Login: "lin", Name: "Lin", CommitsCount: 5, Additions: 5, Deletions: 5},
	}))
	require.NoError(t, store.UpsertContributors(ctx, "r1", "a2", []schema.ContributorRollup{
		{GitHubID: "7", Login: "ada-renamed", Name: "Ada L", CommitsCount: 4, Additions: 1, Deletions: 1},
	}))

	got, err := store.ListContributors(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	ada := got[0]
	assert.Equal(t, "7", ada.GitHubID, "ordered by commit count")
	assert.Equal(t, 7, ada.CommitsCount)
	assert.Equal(t, 31, ada.Additions)
	assert.Equal(t, 4, ada.Deletions)
	assert.Equal(t, "ada-renamed", ada.Login, "identity is overwritten")
	assert.Equal(t, "Ada L", ada.Name)

	t.Run("flags", func(t *testing.T) {
		require.NoError(t, store.UpdateContributorFlags(ctx, "r1", []schema.ContributorRollup{
			{GitHubID: "7", IsFirstContributor: true, IsTopContributor: true},
			{GitHubID: "8"},
		}))
		got, err := store.ListContributors(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, got[0].IsFirstContributor)
		assert.True(t, got[0].IsTopContributor)
		assert.False(t, got[1].IsFirstContributor)
		assert.Equal(t, 7, got[0].CommitsCount, "flag updates leave totals alone")
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, store.UpsertContributors(ctx, "r1", "a3", nil))
		got, err := store.ListContributors(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestModelConfigs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetActive(ctx)
	assert.ErrorIs(t, err, contract.ErrNotFound)

	cfg := schema.ModelConfig{Primary: "m/a", Fallback: "m/b", Enabled: []string{"m/a", "m/b"}}
	v1, err := store.SetActive(ctx, cfg, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Version)

	t.Run("stale base conflicts", func(t *testing.T) {
		_, err := store.SetActive(ctx, cfg, "bob", 0)
		assert.ErrorIs(t, err, contract.ErrConfigConflict)
	})

	t.Run("negative base skips the check", func(t *testing.T) {
		v2, err := store.SetActive(ctx, schema.ModelConfig{Primary: "m/b", Fallback: "m/a", Enabled: []string{"m/b", "m/a"}}, "bob", -1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v2.Version)
	})

	active, err := store.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.Version)
	assert.Equal(t, "m/b", active.Primary)
	assert.Equal(t, []string{"m/b", "m/a"}, active.Enabled)
	assert.Equal(t, "bob", active.UpdatedBy)

	history, err := store.ListConfigHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[1].Version)

	limited, err := store.ListConfigHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDashboardStatsAndStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := t0.AddDate(0, 0, 30)

	seedRepository(t, store, "r1", "acme/widgets")
	seedRepository(t, store, "r2", "acme/gadgets")
	runs := []schema.AnalysisRun{
		{ID: "old", RepositoryID: "r1", Status: schema.CompletedStatus, CreatedAt: now.AddDate(0, 0, -20)},
		{ID: "new", RepositoryID: "r1", Status: schema.CompletedStatus, CreatedAt: now.AddDate(0, 0, -1)},
		{ID: "busy", RepositoryID: "r2", Status: schema.ProcessingStatus, CreatedAt: now.Add(-time.Hour)},
	}
	for _, run := range runs {
		require.NoError(t, store.CreateAnalysis(ctx, run))
	}
	_, err := store.InsertCommits(ctx, "r1", "new", []schema.ScoredCommit{scored("c1", t0, false), scored("c2", t0, false)})
	require.NoError(t, err)

	stats, err := store.DashboardStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, schema.DashboardStats{
		Repositories: 2, Analyses: 2, Processing: 1, Commits: 2, RecentActivity: 2,
	}, stats)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, uint(1), status.SchemaVersion)
	assert.Equal(t, 3, status.TotalAnalyses)
	assert.Equal(t, "busy", status.LastAnalysisID)
	assert.True(t, status.OldestAnalysisAt.Equal(now.AddDate(0, 0, -20)))
	assert.Equal(t, int64(2), status.TableSizes[commitsTable])
	assert.Len(t, status.TableSizes, len(allTables))
}

func TestFormatTimeSortsLexically(t *testing.T) {
	whole := formatTime(t0, schema.SQLiteBackend).(string)
	frac := formatTime(t0.Add(500*time.Millisecond), schema.SQLiteBackend).(string)
	assert.Less(t, whole, frac)

	local := time.Date(2024, 5, 1, 11, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, whole, formatTime(local, schema.SQLiteBackend))
	assert.Equal(t, t0, formatTime(local, schema.PostgreSQLBackend))
}

func TestDBTimeScan(t *testing.T) {
	tests := []struct {
		name  string
		value any
		valid bool
	}{
		{"nil", nil, false},
		{"time", t0, true},
		{"string", t0.Format(sqliteTimeLayout), true},
		{"bytes", []byte(t0.Format(time.RFC3339)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v dbTime
			require.NoError(t, v.Scan(tt.value))
			assert.Equal(t, tt.valid, v.Valid)
			if tt.valid {
				assert.True(t, v.Time.Equal(t0))
				require.NotNil(t, v.Ptr())
			} else {
				assert.Nil(t, v.Ptr())
			}
		})
	}

	var v dbTime
	assert.Error(t, v.Scan(42))
	assert.Error(t, v.Scan("yesterday"))
}

func TestQuoteTableName(t *testing.T) {
	for backend, want := range map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     `"t"`,
		schema.PostgreSQLBackend: `"t"`,
		schema.MySQLBackend:      "`t`",
	} {
		t.Run(fmt.Sprint(backend), func(t *testing.T) {
			assert.Equal(t, want, quoteTableName("t", backend))
		})
	}
}
