// Package outwriter has output and writer logic.
package outwriter

import (
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
)

// OutWriter provides a unified interface for all output operations.
// Every method renders text tables, JSON or CSV according to cfg.Output and
// writes to cfg.OutputFile, or stdout when it is empty.
type OutWriter struct {
	cfg *contract.Config
}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter(cfg *contract.Config) *OutWriter {
	return &OutWriter{cfg: cfg}
}

// WriteRepositories prints imported repositories.
func (ow *OutWriter) WriteRepositories(repos []schema.Repository) error {
	return PrintRepositories(repos, ow.cfg)
}

// WriteCommits prints scored commits.
func (ow *OutWriter) WriteCommits(commits []schema.ScoredCommit) error {
	return PrintCommits(commits, ow.cfg)
}

// WriteContributors prints contributor rollups in rank order.
func (ow *OutWriter) WriteContributors(contributors []schema.ContributorRollup) error {
	return PrintContributors(contributors, ow.cfg)
}

// WriteHealth prints the health score of a repository.
func (ow *OutWriter) WriteHealth(repo schema.Repository, health schema.HealthScore) error {
	return PrintHealth(repo, health, ow.cfg)
}

// WriteAnalyses prints analysis runs.
func (ow *OutWriter) WriteAnalyses(runs []schema.AnalysisRun) error {
	return PrintAnalyses(runs, ow.cfg)
}

// WriteDashboard prints store-wide statistics.
func (ow *OutWriter) WriteDashboard(stats schema.DashboardStats) error {
	return PrintDashboard(stats, ow.cfg)
}

// WriteModels prints the model catalog against the active config.
func (ow *OutWriter) WriteModels(models []schema.ModelDescriptor, active schema.ModelConfig) error {
	return PrintModels(models, active, ow.cfg)
}

// WriteModelConfigs prints model config versions.
func (ow *OutWriter) WriteModelConfigs(versions []schema.ModelConfigVersion) error {
	return PrintModelConfigs(versions, ow.cfg)
}

// WriteAvailability prints model probe results.
func (ow *OutWriter) WriteAvailability(results []ModelAvailability) error {
	return PrintAvailability(results, ow.cfg)
}
