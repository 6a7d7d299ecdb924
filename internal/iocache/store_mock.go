package iocache

import (
	"context"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetStore implements the StoreManager interface.
func (m *MockStoreManager) GetStore() contract.Store {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.Store)
	return store
}

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	mock.Mock
}

var _ contract.Store = &MockStore{} // Compile-time check

// CreateRepository implements the Store interface.
func (m *MockStore) CreateRepository(ctx context.Context, repo schema.Repository) error {
	return m.Called(ctx, repo).Error(0)
}

// GetRepository implements the Store interface.
func (m *MockStore) GetRepository(ctx context.Context, id string) (schema.Repository, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.Repository), args.Error(1)
}

// FindRepositoryByFullName implements the Store interface.
func (m *MockStore) FindRepositoryByFullName(ctx context.Context, fullName string) (schema.Repository, error) {
	args := m.Called(ctx, fullName)
	return args.Get(0).(schema.Repository), args.Error(1)
}

// ListRepositories implements the Store interface.
func (m *MockStore) ListRepositories(ctx context.Context) ([]schema.Repository, error) {
	args := m.Called(ctx)
	repos, _ := args.Get(0).([]schema.Repository)
	return repos, args.Error(1)
}

// TouchRepositoryAnalyzed implements the Store interface.
func (m *MockStore) TouchRepositoryAnalyzed(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

// CreateAnalysis implements the Store interface.
func (m *MockStore) CreateAnalysis(ctx context.Context, run schema.AnalysisRun) error {
	return m.Called(ctx, run).Error(0)
}

// GetAnalysis implements the Store interface.
func (m *MockStore) GetAnalysis(ctx context.Context, id string) (schema.AnalysisRun, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.AnalysisRun), args.Error(1)
}

// ListAnalyses implements the Store interface.
func (m *MockStore) ListAnalyses(ctx context.Context, repositoryID string) ([]schema.AnalysisRun, error) {
	args := m.Called(ctx, repositoryID)
	runs, _ := args.Get(0).([]schema.AnalysisRun)
	return runs, args.Error(1)
}

// FindActiveAnalysis implements the Store interface.
func (m *MockStore) FindActiveAnalysis(ctx context.Context, repositoryID string) (schema.AnalysisRun, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).(schema.AnalysisRun), args.Error(1)
}

// UpdateProgress implements the Store interface.
func (m *MockStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	return m.Called(ctx, id, progress).Error(0)
}

// CompleteAnalysis implements the Store interface.
func (m *MockStore) CompleteAnalysis(ctx context.Context, id string, result schema.AnalysisResult) error {
	return m.Called(ctx, id, result).Error(0)
}

// FailAnalysis implements the Store interface.
func (m *MockStore) FailAnalysis(ctx context.Context, id string, message string, at time.Time) error {
	return m.Called(ctx, id, message, at).Error(0)
}

// InsertCommits implements the Store interface.
func (m *MockStore) InsertCommits(ctx context.Context, repositoryID, analysisID string, commits []schema.ScoredCommit) ([]string, error) {
	args := m.Called(ctx, repositoryID, analysisID, commits)
	shas, _ := args.Get(0).([]string)
	return shas, args.Error(1)
}

// ListCommits implements the Store interface.
func (m *MockStore) ListCommits(ctx context.Context, repositoryID string, query schema.CommitQuery) ([]schema.ScoredCommit, error) {
	args := m.Called(ctx, repositoryID, query)
	commits, _ := args.Get(0).([]schema.ScoredCommit)
	return commits, args.Error(1)
}

// GetCommit implements the Store interface.
func (m *MockStore) GetCommit(ctx context.Context, repositoryID, sha string) (schema.ScoredCommit, error) {
	args := m.Called(ctx, repositoryID, sha)
	return args.Get(0).(schema.ScoredCommit), args.Error(1)
}

// UpsertContributors implements the Store interface.
func (m *MockStore) UpsertContributors(ctx context.Context, repositoryID, analysisID string, rollups []schema.ContributorRollup) error {
	return m.Called(ctx, repositoryID, analysisID, rollups).Error(0)
}

// UpdateContributorFlags implements the Store interface.
func (m *MockStore) UpdateContributorFlags(ctx context.Context, repositoryID string, rollups []schema.ContributorRollup) error {
	return m.Called(ctx, repositoryID, rollups).Error(0)
}

// ListContributors implements the Store interface.
func (m *MockStore) ListContributors(ctx context.Context, repositoryID string) ([]schema.ContributorRollup, error) {
	args := m.Called(ctx, repositoryID)
	rollups, _ := args.Get(0).([]schema.ContributorRollup)
	return rollups, args.Error(1)
}

// GetActive implements the Store interface.
func (m *MockStore) GetActive(ctx context.Context) (schema.ModelConfigVersion, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.ModelConfigVersion), args.Error(1)
}

// SetActive implements the Store interface.
func (m *MockStore) SetActive(ctx context.Context, cfg schema.ModelConfig, updatedBy string, baseVersion int64) (schema.ModelConfigVersion, error) {
	args := m.Called(ctx, cfg, updatedBy, baseVersion)
	return args.Get(0).(schema.ModelConfigVersion), args.Error(1)
}

// ListConfigHistory implements the Store interface.
func (m *MockStore) ListConfigHistory(ctx context.Context, limit int) ([]schema.ModelConfigVersion, error) {
	args := m.Called(ctx, limit)
	versions, _ := args.Get(0).([]schema.ModelConfigVersion)
	return versions, args.Error(1)
}

// DashboardStats implements the Store interface.
func (m *MockStore) DashboardStats(ctx context.Context, now time.Time) (schema.DashboardStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(schema.DashboardStats), args.Error(1)
}

// GetStatus implements the Store interface.
func (m *MockStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	return m.Called().Error(0)
}
