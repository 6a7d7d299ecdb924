// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/gitlegend/gitlegend/schema"
)

// Error taxonomy shared across the pipeline. Callers classify with errors.Is.
var (
	// ErrInvalidInput marks caller mistakes that are reported before any work starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidModelConfig marks a model configuration that fails registry validation.
	ErrInvalidModelConfig = errors.New("invalid model configuration")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRepositoryNotFound means the hosting service reported 404 (missing or no access).
	ErrRepositoryNotFound = errors.New("repository not found or no access")

	// ErrUpstream wraps any other hosting-service failure.
	ErrUpstream = errors.New("upstream service error")

	// ErrAnalysisInProgress rejects a second run for a repository that is already processing.
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	// ErrConfigConflict means the model config changed since the caller read it.
	ErrConfigConflict = errors.New("model config was updated concurrently")

	// ErrDuplicateRepository rejects importing the same repository twice.
	ErrDuplicateRepository = errors.New("repository already exists")
)

// CommitFacts is what the generation client needs to summarize a commit.
type CommitFacts struct {
	Message      string
	FilesChanged int
	Additions    int
	Deletions    int
}

// SummaryResult reports the outcome of summary generation.
// Both fields are empty when every candidate model failed.
type SummaryResult struct {
	Summary   string
	ModelUsed string
}

// BatchItem is one commit queued for batch summary generation.
type BatchItem struct {
	SHA   string
	Facts CommitFacts
}

// BatchResult pairs a commit SHA with its summary outcome.
type BatchResult struct {
	SHA string
	SummaryResult
}

// ModelCatalog resolves model ids to descriptors.
type ModelCatalog interface {
	GetModelByID(id string) (schema.ModelDescriptor, bool)
}

// Summarizer produces natural-language commit summaries.
type Summarizer interface {
	GenerateSummary(ctx context.Context, facts CommitFacts, candidates []string) SummaryResult
	BatchGenerateSummaries(ctx context.Context, items []BatchItem, candidates []string) []BatchResult
	TestModelAvailability(ctx context.Context, modelID string) bool

	// AvailableModels probes every enabled model and keeps the ones that answered.
	AvailableModels(ctx context.Context, cfg schema.ModelConfig) []string
}

// CommitSource fetches commit history and metadata from the hosting service.
type CommitSource interface {
	// FetchCommits returns up to the configured cap of commits, most recent first.
	FetchCommits(ctx context.Context, fullName string) ([]schema.RawCommit, error)

	// FetchRepository returns metadata for an owner/name pair.
	FetchRepository(ctx context.Context, fullName string) (schema.Repository, error)
}

// RepositoryStore persists imported repositories.
type RepositoryStore interface {
	CreateRepository(ctx context.Context, repo schema.Repository) error
	GetRepository(ctx context.Context, id string) (schema.Repository, error)
	FindRepositoryByFullName(ctx context.Context, fullName string) (schema.Repository, error)
	ListRepositories(ctx context.Context) ([]schema.Repository, error)
	TouchRepositoryAnalyzed(ctx context.Context, id string, at time.Time) error
}

// AnalysisStore tracks analysis runs. Only the orchestrator mutates runs.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, run schema.AnalysisRun) error
	GetAnalysis(ctx context.Context, id string) (schema.AnalysisRun, error)
	ListAnalyses(ctx context.Context, repositoryID string) ([]schema.AnalysisRun, error)

	// FindActiveAnalysis returns the PROCESSING run of a repository, or ErrNotFound.
	FindActiveAnalysis(ctx context.Context, repositoryID string) (schema.AnalysisRun, error)

	// UpdateProgress raises the progress of a PROCESSING run; it never lowers it.
	UpdateProgress(ctx context.Context, id string, progress int) error

	CompleteAnalysis(ctx context.Context, id string, result schema.AnalysisResult) error
	FailAnalysis(ctx context.Context, id string, message string, at time.Time) error
}

// CommitStore persists scored commits keyed by repository and SHA.
type CommitStore interface {
	// InsertCommits inserts commits, skipping SHAs already stored for the repository,
	// and returns the SHAs that were actually inserted.
	InsertCommits(ctx context.Context, repositoryID, analysisID string, commits []schema.ScoredCommit) ([]string, error)

	// ListCommits returns commits newest first.
	ListCommits(ctx context.Context, repositoryID string, query schema.CommitQuery) ([]schema.ScoredCommit, error)

	GetCommit(ctx context.Context, repositoryID, sha string) (schema.ScoredCommit, error)
}

// ContributorStore persists contributor rollups keyed by repository and GitHub id.
type ContributorStore interface {
	// UpsertContributors increments numeric totals and overwrites identity fields.
	UpsertContributors(ctx context.Context, repositoryID, analysisID string, rollups []schema.ContributorRollup) error

	// UpdateContributorFlags overwrites the rank flags of existing rows.
	UpdateContributorFlags(ctx context.Context, repositoryID string, rollups []schema.ContributorRollup) error

	// ListContributors returns rollups ordered by commit count, highest first.
	ListContributors(ctx context.Context, repositoryID string) ([]schema.ContributorRollup, error)
}

// ModelConfigStore is an append-only, versioned model configuration store.
type ModelConfigStore interface {
	// GetActive returns the latest version, or ErrNotFound when nothing was saved.
	GetActive(ctx context.Context) (schema.ModelConfigVersion, error)

	// SetActive appends a new version. A non-negative baseVersion must match the
	// current active version or ErrConfigConflict is returned.
	SetActive(ctx context.Context, cfg schema.ModelConfig, updatedBy string, baseVersion int64) (schema.ModelConfigVersion, error)

	ListConfigHistory(ctx context.Context, limit int) ([]schema.ModelConfigVersion, error)
}

// Store is the full persistence contract used by the service layer.
type Store interface {
	RepositoryStore
	AnalysisStore
	CommitStore
	ContributorStore
	ModelConfigStore

	DashboardStats(ctx context.Context, now time.Time) (schema.DashboardStats, error)
	GetStatus() (schema.StoreStatus, error)
	Close() error
}

// StoreManager hands out the process-wide store.
type StoreManager interface {
	GetStore() Store
}
