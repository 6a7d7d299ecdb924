package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gitlegend/gitlegend/core/agg"
	"github.com/gitlegend/gitlegend/core/algo"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/genclient"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/google/uuid"
)

// Failure messages recorded on runs that did not finish on their own.
const (
	canceledMessage  = "analysis canceled"
	abandonedMessage = "abandoned"
)

// OrchestratorOptions tunes an Orchestrator. Zero values use the defaults.
type OrchestratorOptions struct {
	// ModelConfig returns the model config a run should use.
	ModelConfig func(ctx context.Context) schema.ModelConfig

	ModelOverride string
	RollupMode    schema.RollupMode
	StaleAfter    time.Duration

	// OnProgress observes every checkpoint a run reaches, including the final 100.
	OnProgress func(analysisID string, progress int)

	Now   func() time.Time
	NewID func() string
}

// Orchestrator drives analysis runs: ingest, score, summarize, aggregate, persist.
type Orchestrator struct {
	store      contract.Store
	source     contract.CommitSource
	summarizer contract.Summarizer
	runner     *TaskRunner
	opts       OrchestratorOptions

	// startMu serializes the active-run lookup with run creation.
	startMu sync.Mutex
}

// NewOrchestrator wires an orchestrator to its collaborators.
func NewOrchestrator(store contract.Store, source contract.CommitSource, summarizer contract.Summarizer, runner *TaskRunner, opts OrchestratorOptions) *Orchestrator {
	if opts.RollupMode == "" {
		opts.RollupMode = schema.NewCommitsRollup
	}
	if opts.StaleAfter == 0 {
		opts.StaleAfter = contract.DefaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.ModelConfig == nil {
		opts.ModelConfig = func(context.Context) schema.ModelConfig { return schema.ModelConfig{} }
	}
	if runner == nil {
		runner = NewTaskRunner()
	}
	return &Orchestrator{store: store, source: source, summarizer: summarizer, runner: runner, opts: opts}
}

// Start creates a PROCESSING run for the repository and executes the pipeline
// in the background. It fails with ErrAnalysisInProgress while another run of
// the same repository is active, in this process or in the store.
func (o *Orchestrator) Start(ctx context.Context, repo schema.Repository) (*Task, error) {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	if task, ok := o.runner.Active(repo.ID); ok {
		return nil, fmt.Errorf("repository %s (run %s): %w", repo.FullName, task.AnalysisID, contract.ErrAnalysisInProgress)
	}
	if err := o.releaseStaleRun(ctx, repo); err != nil {
		return nil, err
	}

	run := schema.AnalysisRun{
		ID:           o.opts.NewID(),
		RepositoryID: repo.ID,
		Status:       schema.ProcessingStatus,
		Progress:     schema.ProgressStarted,
		CreatedAt:    o.opts.Now().UTC(),
	}
	if err := o.store.CreateAnalysis(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	task, err := o.runner.Submit(ctx, repo.ID, run.ID, func(runCtx context.Context) error {
		return o.run(runCtx, run, repo)
	})
	if err != nil {
		_ = o.store.FailAnalysis(ctx, run.ID, err.Error(), o.opts.Now().UTC())
		return nil, err
	}
	return task, nil
}

// releaseStaleRun rejects the start while the store holds a fresh PROCESSING
// run, and fails runs that have been PROCESSING longer than the stale window.
func (o *Orchestrator) releaseStaleRun(ctx context.Context, repo schema.Repository) error {
	active, err := o.store.FindActiveAnalysis(ctx, repo.ID)
	if errors.Is(err, contract.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up active analysis: %w", err)
	}

	if age := o.opts.Now().Sub(active.CreatedAt); age < o.opts.StaleAfter {
		return fmt.Errorf("repository %s (run %s): %w", repo.FullName, active.ID, contract.ErrAnalysisInProgress)
	}
	contract.LogWarn(fmt.Sprintf("Marking stale analysis %s of %s as abandoned", active.ID, repo.FullName), nil)
	if err := o.store.FailAnalysis(ctx, active.ID, abandonedMessage, o.opts.Now().UTC()); err != nil && !errors.Is(err, contract.ErrNotFound) {
		return fmt.Errorf("failed to abandon analysis %s: %w", active.ID, err)
	}
	return nil
}

// run executes the pipeline and records the failure on the run when it stops early.
func (o *Orchestrator) run(ctx context.Context, run schema.AnalysisRun, repo schema.Repository) error {
	err := o.execute(ctx, run, repo)
	if err == nil {
		return nil
	}

	message := err.Error()
	if ctx.Err() != nil {
		message = canceledMessage
		err = fmt.Errorf("%s: %w", canceledMessage, ctx.Err())
	}
	// The run context may already be canceled; the failure must still land.
	if ferr := o.store.FailAnalysis(context.WithoutCancel(ctx), run.ID, message, o.opts.Now().UTC()); ferr != nil {
		contract.LogWarn(fmt.Sprintf("Failed to mark analysis %s as failed", run.ID), ferr)
	}
	return err
}

// execute is the pipeline proper. Progress checkpoints: 10, 30, 60, 80, 100.
func (o *Orchestrator) execute(ctx context.Context, run schema.AnalysisRun, repo schema.Repository) error {
	// --- 1. Ingest ---
	if err := o.checkpoint(ctx, run.ID, schema.ProgressIngesting); err != nil {
		return err
	}
	raw, err := o.source.FetchCommits(ctx, repo.FullName)
	if err != nil {
		return err
	}
	if err := o.checkpoint(ctx, run.ID, schema.ProgressIngested); err != nil {
		return err
	}

	// --- 2. Score ---
	scored := algo.ScoreAll(raw)
	if err := o.checkpoint(ctx, run.ID, schema.ProgressScored); err != nil {
		return err
	}

	// --- 3. Summarize key commits ---
	keyCommits, summaries, usage := o.summarize(ctx, scored)
	if err := o.checkpoint(ctx, run.ID, schema.ProgressSummarized); err != nil {
		return err
	}

	// --- 4. Persist commits, skipping known SHAs ---
	inserted, err := o.store.InsertCommits(ctx, repo.ID, run.ID, scored)
	if err != nil {
		return fmt.Errorf("failed to persist commits: %w", err)
	}

	// --- 5. Aggregate contributors and refresh rank flags ---
	rollups := agg.Aggregate(o.rollupCommits(scored, inserted))
	if err := o.store.UpsertContributors(ctx, repo.ID, run.ID, rollups); err != nil {
		return fmt.Errorf("failed to persist contributors: %w", err)
	}
	if err := o.refreshRanks(ctx, repo.ID); err != nil {
		return err
	}

	// --- 6. Complete ---
	now := o.opts.Now().UTC()
	result := schema.AnalysisResult{
		CommitsFound:       len(raw),
		KeyCommits:         keyCommits,
		SummariesGenerated: summaries,
		ModelUsage:         usage,
		CompletedAt:        now,
	}
	if err := o.store.CompleteAnalysis(ctx, run.ID, result); err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if err := o.store.TouchRepositoryAnalyzed(ctx, repo.ID, now); err != nil {
		contract.LogWarn(fmt.Sprintf("Failed to stamp last analysis time of %s", repo.FullName), err)
	}
	o.notify(run.ID, schema.ProgressDone)
	return nil
}

// checkpoint raises the progress of a run and reports it.
func (o *Orchestrator) checkpoint(ctx context.Context, analysisID string, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.store.UpdateProgress(ctx, analysisID, progress); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	o.notify(analysisID, progress)
	return nil
}

func (o *Orchestrator) notify(analysisID string, progress int) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(analysisID, progress)
	}
}

// summarize fills in summaries for key commits in place and returns the key
// commit count, the summary count and the model usage histogram.
func (o *Orchestrator) summarize(ctx context.Context, scored []schema.ScoredCommit) (int, int, map[string]int) {
	usage := make(map[string]int)

	var items []contract.BatchItem
	index := make(map[string]int)
	for i, c := range scored {
		if !c.IsKeyCommit {
			continue
		}
		index[c.SHA] = i
		items = append(items, contract.BatchItem{
			SHA: c.SHA,
			Facts: contract.CommitFacts{
				Message:      c.Message,
				FilesChanged: c.FilesChanged,
				Additions:    c.Additions,
				Deletions:    c.Deletions,
			},
		})
	}
	if len(items) == 0 {
		return 0, 0, usage
	}

	candidates := genclient.CandidateModels(o.opts.ModelOverride, o.opts.ModelConfig(ctx))
	summaries := 0
	for _, res := range o.summarizer.BatchGenerateSummaries(ctx, items, candidates) {
		i, ok := index[res.SHA]
		if !ok || res.Summary == "" {
			continue
		}
		scored[i].Summary = res.Summary
		scored[i].ModelUsed = res.ModelUsed
		usage[res.ModelUsed]++
		summaries++
	}
	return len(items), summaries, usage
}

// rollupCommits picks the commits that feed contributor increments.
func (o *Orchestrator) rollupCommits(scored []schema.ScoredCommit, inserted []string) []schema.ScoredCommit {
	if o.opts.RollupMode == schema.AdditiveRollup {
		return scored
	}
	fresh := make(map[string]struct{}, len(inserted))
	for _, sha := range inserted {
		fresh[sha] = struct{}{}
	}
	result := make([]schema.ScoredCommit, 0, len(inserted))
	for _, c := range scored {
		if _, ok := fresh[c.SHA]; ok {
			result = append(result, c)
		}
	}
	return result
}

// refreshRanks recomputes rank flags from the full persisted contributor set.
func (o *Orchestrator) refreshRanks(ctx context.Context, repositoryID string) error {
	all, err := o.store.ListContributors(ctx, repositoryID)
	if err != nil {
		return fmt.Errorf("failed to load contributors: %w", err)
	}
	if err := o.store.UpdateContributorFlags(ctx, repositoryID, agg.Rank(all)); err != nil {
		return fmt.Errorf("failed to update contributor ranks: %w", err)
	}
	return nil
}
