// Package core runs repository analyses and answers queries over their results.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitlegend/gitlegend/core/algo"
	"github.com/gitlegend/gitlegend/core/insight"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/githost"
	"github.com/gitlegend/gitlegend/internal/registry"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/google/uuid"
)

// Service is the query surface shared by the CLI and the MCP server.
type Service struct {
	store        contract.Store
	source       contract.CommitSource
	summarizer   contract.Summarizer
	models       *registry.Registry
	orchestrator *Orchestrator
	runner       *TaskRunner
	now          func() time.Time
	newID        func() string
}

// ServiceOptions tunes a Service. Zero values use the defaults.
type ServiceOptions struct {
	ModelOverride string
	RollupMode    schema.RollupMode
	StaleAfter    time.Duration
	OnProgress    func(analysisID string, progress int)
	Now           func() time.Time
	NewID         func() string
}

// ServiceOptionsFromConfig maps the validated runtime config onto service options.
func ServiceOptionsFromConfig(cfg *contract.Config) ServiceOptions {
	return ServiceOptions{
		ModelOverride: cfg.ModelOverride,
		RollupMode:    cfg.RollupMode,
		StaleAfter:    cfg.StaleAfter,
	}
}

// NewService wires a service and its orchestrator.
func NewService(store contract.Store, source contract.CommitSource, summarizer contract.Summarizer, models *registry.Registry, opts ServiceOptions) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	s := &Service{
		store:      store,
		source:     source,
		summarizer: summarizer,
		models:     models,
		runner:     NewTaskRunner(),
		now:        opts.Now,
		newID:      opts.NewID,
	}
	s.orchestrator = NewOrchestrator(store, source, summarizer, s.runner, OrchestratorOptions{
		ModelConfig:   s.activeModelConfig,
		ModelOverride: opts.ModelOverride,
		RollupMode:    opts.RollupMode,
		StaleAfter:    opts.StaleAfter,
		OnProgress:    opts.OnProgress,
		Now:           opts.Now,
		NewID:         opts.NewID,
	})
	return s
}

// Shutdown cancels in-flight analyses and waits for them to record their state.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.runner.Shutdown(ctx)
}

// --- Repositories ---

// AddRepository imports a repository by URL or owner/name.
func (s *Service) AddRepository(ctx context.Context, rawURL string) (schema.Repository, error) {
	owner, name, err := githost.ParseRepositoryURL(rawURL)
	if err != nil {
		return schema.Repository{}, err
	}
	fullName := owner + "/" + name

	if _, err := s.store.FindRepositoryByFullName(ctx, fullName); err == nil {
		return schema.Repository{}, fmt.Errorf("%s: %w", fullName, contract.ErrDuplicateRepository)
	} else if !errors.Is(err, contract.ErrNotFound) {
		return schema.Repository{}, err
	}

	repo, err := s.source.FetchRepository(ctx, fullName)
	if err != nil {
		return schema.Repository{}, err
	}
	repo.ID = s.newID()
	repo.CreatedAt = s.now().UTC()
	repo.LastAnalyzedAt = nil
	if err := s.store.CreateRepository(ctx, repo); err != nil {
		return schema.Repository{}, err
	}
	return repo, nil
}

// ListRepositories returns every imported repository, newest first.
func (s *Service) ListRepositories(ctx context.Context) ([]schema.Repository, error) {
	return s.store.ListRepositories(ctx)
}

// ResolveRepository finds a repository by id, owner/name or URL.
func (s *Service) ResolveRepository(ctx context.Context, ref string) (schema.Repository, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return schema.Repository{}, fmt.Errorf("%w: repository is required", contract.ErrInvalidInput)
	}

	repo, err := s.store.GetRepository(ctx, ref)
	if err == nil || !errors.Is(err, contract.ErrNotFound) {
		return repo, err
	}
	owner, name, perr := githost.ParseRepositoryURL(ref)
	if perr != nil {
		return repo, err
	}
	return s.store.FindRepositoryByFullName(ctx, owner+"/"+name)
}

// --- Analyses ---

// StartAnalysis starts a background analysis of a repository. The analysis id
// is on the returned handle.
func (s *Service) StartAnalysis(ctx context.Context, repositoryRef string) (*Task, error) {
	repo, err := s.ResolveRepository(ctx, repositoryRef)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Start(ctx, repo)
}

// GetAnalysis returns one analysis run.
func (s *Service) GetAnalysis(ctx context.Context, analysisID string) (schema.AnalysisRun, error) {
	return s.store.GetAnalysis(ctx, analysisID)
}

// ListAnalyses returns the runs of a repository, newest first.
func (s *Service) ListAnalyses(ctx context.Context, repositoryRef string) ([]schema.AnalysisRun, error) {
	repo, err := s.ResolveRepository(ctx, repositoryRef)
	if err != nil {
		return nil, err
	}
	return s.store.ListAnalyses(ctx, repo.ID)
}

// ListCommits returns persisted commits of a repository, newest first.
func (s *Service) ListCommits(ctx context.Context, repositoryRef string, query schema.CommitQuery) ([]schema.ScoredCommit, error) {
	repo, err := s.ResolveRepository(ctx, repositoryRef)
	if err != nil {
		return nil, err
	}
	return s.store.ListCommits(ctx, repo.ID, query)
}

// ListContributors returns contributor rollups of a repository by commit count.
func (s *Service) ListContributors(ctx context.Context, repositoryRef string) ([]schema.ContributorRollup, error) {
	repo, err := s.ResolveRepository(ctx, repositoryRef)
	if err != nil {
		return nil, err
	}
	return s.store.ListContributors(ctx, repo.ID)
}

// GetHealthScore derives the health score from persisted data.
func (s *Service) GetHealthScore(ctx context.Context, repositoryRef string) (schema.HealthScore, error) {
	_, commits, contributors, err := s.history(ctx, repositoryRef)
	if err != nil {
		return schema.HealthScore{}, err
	}
	return algo.ComputeHealth(commits, contributors, s.now()), nil
}

// DashboardStats summarizes the whole store.
func (s *Service) DashboardStats(ctx context.Context) (schema.DashboardStats, error) {
	return s.store.DashboardStats(ctx, s.now())
}

// --- Insights ---

// Biography tells the story of a repository.
func (s *Service) Biography(ctx context.Context, repositoryRef string) (schema.Biography, error) {
	repo, commits, contributors, err := s.history(ctx, repositoryRef)
	if err != nil {
		return schema.Biography{}, err
	}
	return insight.Biography(repo, commits, contributors), nil
}

// Intel returns a commit and the commits related to it.
func (s *Service) Intel(ctx context.Context, repositoryRef, sha string) (schema.Intel, error) {
	repo, err := s.ResolveRepository(ctx, repositoryRef)
	if err != nil {
		return schema.Intel{}, err
	}
	target, err := s.store.GetCommit(ctx, repo.ID, strings.TrimSpace(sha))
	if err != nil {
		return schema.Intel{}, err
	}
	commits, err := s.store.ListCommits(ctx, repo.ID, schema.CommitQuery{})
	if err != nil {
		return schema.Intel{}, err
	}
	return insight.Intel(target, commits), nil
}

// DiagnoseBugOrigin looks for the commit most likely to have introduced a bug.
// A zero since searches all history.
func (s *Service) DiagnoseBugOrigin(ctx context.Context, repositoryRef, description string, since time.Time) (schema.BugDiagnosis, error) {
	if strings.TrimSpace(description) == "" {
		return schema.BugDiagnosis{}, fmt.Errorf("%w: bug description is required", contract.ErrInvalidInput)
	}
	_, commits, _, err := s.history(ctx, repositoryRef)
	if err != nil {
		return schema.BugDiagnosis{}, err
	}
	return insight.DiagnoseBugOrigin(description, commits, since), nil
}

// ArchitecturalShifts explains how the architecture evolved.
func (s *Service) ArchitecturalShifts(ctx context.Context, repositoryRef string) (schema.ArchitectureReport, error) {
	_, commits, _, err := s.history(ctx, repositoryRef)
	if err != nil {
		return schema.ArchitectureReport{}, err
	}
	return insight.ArchitecturalShifts(commits), nil
}

// ReviewGuidelines derives review rules from recent history.
func (s *Service) ReviewGuidelines(ctx context.Context, repositoryRef string) (schema.ReviewGuidelines, error) {
	_, commits, _, err := s.history(ctx, repositoryRef)
	if err != nil {
		return schema.ReviewGuidelines{}, err
	}
	return insight.ReviewGuidelines(commits), nil
}

// history loads a repository together with all of its commits and contributors.
func (s *Service) history(ctx context.Context, repositoryRef string) (schema.Repository, []schema.ScoredCommit, []schema.ContributorRollup, error) {
	repo, err := s.ResolveRepository(ctx, repositoryRef)
	if err != nil {
		return repo, nil, nil, err
	}
	commits, err := s.store.ListCommits(ctx, repo.ID, schema.CommitQuery{})
	if err != nil {
		return repo, nil, nil, err
	}
	contributors, err := s.store.ListContributors(ctx, repo.ID)
	if err != nil {
		return repo, nil, nil, err
	}
	return repo, commits, contributors, nil
}

// --- Models ---

// Models returns the model registry.
func (s *Service) Models() *registry.Registry {
	return s.models
}

// GetModelConfig returns the active model config. Version 0 is the built-in default.
func (s *Service) GetModelConfig(ctx context.Context) (schema.ModelConfigVersion, error) {
	active, err := s.store.GetActive(ctx)
	if errors.Is(err, contract.ErrNotFound) {
		return schema.ModelConfigVersion{ModelConfig: s.models.DefaultModelConfig()}, nil
	}
	return active, err
}

// SetModelConfig validates and saves a new model config version. A baseVersion
// of -1 skips the concurrent update check.
func (s *Service) SetModelConfig(ctx context.Context, cfg schema.ModelConfig, updatedBy string, baseVersion int64) (schema.ModelConfigVersion, error) {
	if err := s.models.ValidateConfig(cfg); err != nil {
		return schema.ModelConfigVersion{}, err
	}
	return s.store.SetActive(ctx, cfg, updatedBy, baseVersion)
}

// ModelConfigHistory returns up to limit saved config versions, newest first.
func (s *Service) ModelConfigHistory(ctx context.Context, limit int) ([]schema.ModelConfigVersion, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: history limit must be at least 1", contract.ErrInvalidInput)
	}
	return s.store.ListConfigHistory(ctx, limit)
}

// TestModelAvailability probes one model.
func (s *Service) TestModelAvailability(ctx context.Context, modelID string) bool {
	return s.summarizer.TestModelAvailability(ctx, modelID)
}

// AvailableModels probes every enabled model of the active config.
func (s *Service) AvailableModels(ctx context.Context) ([]string, error) {
	active, err := s.GetModelConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s.summarizer.AvailableModels(ctx, active.ModelConfig), nil
}

// activeModelConfig is the config runs use; store failures fall back to the default.
func (s *Service) activeModelConfig(ctx context.Context) schema.ModelConfig {
	active, err := s.GetModelConfig(ctx)
	if err != nil {
		contract.LogWarn("Failed to load model config, using default", err)
		return s.models.DefaultModelConfig()
	}
	return active.ModelConfig
}
