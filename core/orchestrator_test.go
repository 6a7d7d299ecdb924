package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/iocache"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testRepo   = schema.Repository{ID: "r1", GitHubID: 1, Name: "widgets", FullName: "acme/widgets", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	testModels = schema.ModelConfig{Primary: "m/a", Fallback: "m/b", Enabled: []string{"m/a", "m/b"}}
)

func newTestStore(t *testing.T) *iocache.SQLStore {
	t.Helper()
	store, err := iocache.NewSQLStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "legend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreateRepository(context.Background(), testRepo))
	return store
}

// progressLog records checkpoints reported by the orchestrator.
type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) record(_ string, progress int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, progress)
}

func (p *progressLog) get() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func newTestOrchestrator(store contract.Store, source contract.CommitSource, summarizer contract.Summarizer, opts OrchestratorOptions) *Orchestrator {
	if opts.ModelConfig == nil {
		opts.ModelConfig = func(context.Context) schema.ModelConfig { return testModels }
	}
	return NewOrchestrator(store, source, summarizer, NewTaskRunner(), opts)
}

// rawCommits returns one key commit and two ordinary commits, newest first.
func rawCommits() []schema.RawCommit {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []schema.RawCommit{
		{
			SHA: "k1", Message: "Rewrite the storage engine", AuthorName: "Ada", AuthorLogin: "ada", AuthorGitHubID: "7",
			AuthorDate: at, Additions: 400, Deletions: 100,
			Files: []schema.ChangedFile{{Filename: "store.go", Additions: 400, Deletions: 100, Changes: 500}},
		},
		{SHA: "c2", Message: "typo", AuthorName: "Ada", AuthorLogin: "ada", AuthorGitHubID: "7", AuthorDate: at.Add(-time.Hour)},
		{SHA: "c1", Message: "docs", AuthorName: "Lin", AuthorLogin: "lin", AuthorGitHubID: "8", AuthorDate: at.Add(-2 * time.Hour)},
	}
}

func summarizerFor(sha, summary, model string) *contract.MockSummarizer {
	summarizer := &contract.MockSummarizer{}
	summarizer.On("BatchGenerateSummaries", mock.Anything, mock.AnythingOfType("[]contract.BatchItem"), []string{"m/a", "m/b"}).
		Return([]contract.BatchResult{{SHA: sha, SummaryResult: contract.SummaryResult{Summary: summary, ModelUsed: model}}})
	return summarizer
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").Return(rawCommits(), nil)
	summarizer := summarizerFor("k1", "Replaced the storage engine.", "m/a")
	progress := &progressLog{}

	o := newTestOrchestrator(store, source, summarizer, OrchestratorOptions{OnProgress: progress.record})
	task, err := o.Start(ctx, testRepo)
	require.NoError(t, err)
	require.NoError(t, task.Wait(waitCtx(t)))

	assert.Equal(t, []int{10, 30, 60, 80, 100}, progress.get())

	run, err := store.GetAnalysis(ctx, task.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, schema.CompletedStatus, run.Status)
	assert.Equal(t, 100, run.Progress)
	assert.Equal(t, 3, run.CommitsFound)
	assert.Equal(t, 1, run.KeyCommits)
	assert.Equal(t, 1, run.SummariesGenerated)
	assert.Equal(t, map[string]int{"m/a": 1}, run.ModelUsage)
	assert.NotNil(t, run.CompletedAt)

	key, err := store.GetCommit(ctx, "r1", "k1")
	require.NoError(t, err)
	assert.True(t, key.IsKeyCommit)
	assert.Equal(t, "Replaced the storage engine.", key.Summary)
	assert.Equal(t, "m/a", key.ModelUsed)

	contributors, err := store.ListContributors(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, contributors, 2)
	assert.Equal(t, "ada", contributors[0].Login)
	assert.Equal(t, 2, contributors[0].CommitsCount)
	assert.True(t, contributors[0].IsFirstContributor)
	assert.True(t, contributors[0].IsTopContributor)
	assert.False(t, contributors[1].IsTopContributor)

	repo, err := store.GetRepository(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, repo.LastAnalyzedAt)

	source.AssertExpectations(t)
	summarizer.AssertExpectations(t)
}

func TestOrchestratorRollupModes(t *testing.T) {
	tests := []struct {
		mode      schema.RollupMode
		wantAda   int
		wantFound int
	}{
		{schema.NewCommitsRollup, 2, 3},
		{schema.AdditiveRollup, 4, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			source := &contract.MockCommitSource{}
			source.On("FetchCommits", mock.Anything, "acme/widgets").Return(rawCommits(), nil)
			summarizer := summarizerFor("k1", "Summary.", "m/a")
			o := newTestOrchestrator(store, source, summarizer, OrchestratorOptions{RollupMode: tt.mode})

			for range 2 {
				task, err := o.Start(ctx, testRepo)
				require.NoError(t, err)
				require.NoError(t, task.Wait(waitCtx(t)))
			}

			contributors, err := store.ListContributors(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAda, contributors[0].CommitsCount)

			commits, err := store.ListCommits(ctx, "r1", schema.CommitQuery{})
			require.NoError(t, err)
			assert.Len(t, commits, tt.wantFound, "re-runs never duplicate commits")

			runs, err := store.ListAnalyses(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, runs, 2)
			for _, run := range runs {
				assert.Equal(t, schema.CompletedStatus, run.Status)
			}
		})
	}
}

func TestOrchestratorNoKeyCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").Return(rawCommits()[1:], nil)
	summarizer := &contract.MockSummarizer{}

	o := newTestOrchestrator(store, source, summarizer, OrchestratorOptions{})
	task, err := o.Start(ctx, testRepo)
	require.NoError(t, err)
	require.NoError(t, task.Wait(waitCtx(t)))

	run, err := store.GetAnalysis(ctx, task.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, 0, run.KeyCommits)
	assert.Empty(t, run.ModelUsage)
	summarizer.AssertNotCalled(t, "BatchGenerateSummaries", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestratorSummaryFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").Return(rawCommits(), nil)
	summarizer := summarizerFor("k1", "", "")

	o := newTestOrchestrator(store, source, summarizer, OrchestratorOptions{})
	task, err := o.Start(ctx, testRepo)
	require.NoError(t, err)
	require.NoError(t, task.Wait(waitCtx(t)))

	run, err := store.GetAnalysis(ctx, task.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, schema.CompletedStatus, run.Status)
	assert.Equal(t, 1, run.KeyCommits)
	assert.Equal(t, 0, run.SummariesGenerated)
}

func TestOrchestratorUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").
		Return(nil, fmt.Errorf("acme/widgets: %w", contract.ErrRepositoryNotFound))
	progress := &progressLog{}

	o := newTestOrchestrator(store, source, &contract.MockSummarizer{}, OrchestratorOptions{OnProgress: progress.record})
	task, err := o.Start(ctx, testRepo)
	require.NoError(t, err)
	assert.ErrorIs(t, task.Wait(waitCtx(t)), contract.ErrRepositoryNotFound)

	run, err := store.GetAnalysis(ctx, task.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, schema.FailedStatus, run.Status)
	assert.Contains(t, run.Error, "not found or no access")
	assert.Equal(t, 10, run.Progress)
	assert.Equal(t, []int{10}, progress.get())
}

func TestOrchestratorSingleRunPerRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	release := make(chan struct{})
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").
		Run(func(mock.Arguments) { <-release }).
		Return(rawCommits()[1:], nil)

	o := newTestOrchestrator(store, source, &contract.MockSummarizer{}, OrchestratorOptions{})
	first, err := o.Start(ctx, testRepo)
	require.NoError(t, err)

	_, err = o.Start(ctx, testRepo)
	assert.ErrorIs(t, err, contract.ErrAnalysisInProgress)

	close(release)
	require.NoError(t, first.Wait(waitCtx(t)))

	second, err := o.Start(ctx, testRepo)
	require.NoError(t, err, "a finished run no longer blocks")
	require.NoError(t, second.Wait(waitCtx(t)))
}

func TestOrchestratorActiveRunInStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").Return(rawCommits()[1:], nil)

	t.Run("fresh run blocks", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.CreateAnalysis(ctx, schema.AnalysisRun{
			ID: "elsewhere", RepositoryID: "r1", Status: schema.ProcessingStatus, CreatedAt: now.Add(-time.Minute),
		}))
		o := newTestOrchestrator(store, source, &contract.MockSummarizer{}, OrchestratorOptions{
			StaleAfter: time.Hour, Now: func() time.Time { return now },
		})
		_, err := o.Start(ctx, testRepo)
		assert.ErrorIs(t, err, contract.ErrAnalysisInProgress)
	})

	t.Run("stale run is abandoned", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.CreateAnalysis(ctx, schema.AnalysisRun{
			ID: "crashed", RepositoryID: "r1", Status: schema.ProcessingStatus, CreatedAt: now.Add(-2 * time.Hour),
		}))
		o := newTestOrchestrator(store, source, &contract.MockSummarizer{}, OrchestratorOptions{
			StaleAfter: time.Hour, Now: func() time.Time { return now },
		})
		task, err := o.Start(ctx, testRepo)
		require.NoError(t, err)
		require.NoError(t, task.Wait(waitCtx(t)))

		stale, err := store.GetAnalysis(ctx, "crashed")
		require.NoError(t, err)
		assert.Equal(t, schema.FailedStatus, stale.Status)
		assert.Equal(t, "abandoned", stale.Error)
	})
}

func TestOrchestratorCancel(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	started := make(chan struct{})
	source := &contract.MockCommitSource{}
	source.On("FetchCommits", mock.Anything, "acme/widgets").
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled)

	o := newTestOrchestrator(store, source, &contract.MockSummarizer{}, OrchestratorOptions{})
	task, err := o.Start(ctx, testRepo)
	require.NoError(t, err)

	<-started
	task.Cancel()
	assert.ErrorIs(t, task.Wait(waitCtx(t)), context.Canceled)

	run, err := store.GetAnalysis(ctx, task.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, schema.FailedStatus, run.Status)
	assert.Equal(t, "analysis canceled", run.Error)
}

func TestOrchestratorCreateFailure(t *testing.T) {
	store := &iocache.MockStore{}
	store.On("FindActiveAnalysis", mock.Anything, "r1").Return(schema.AnalysisRun{}, contract.ErrNotFound)
	store.On("CreateAnalysis", mock.Anything, mock.AnythingOfType("schema.AnalysisRun")).Return(assert.AnError)

	o := newTestOrchestrator(store, &contract.MockCommitSource{}, &contract.MockSummarizer{}, OrchestratorOptions{NewID: func() string { return "a1" }})
	_, err := o.Start(context.Background(), testRepo)
	assert.ErrorIs(t, err, assert.AnError)
	store.AssertExpectations(t)
}
