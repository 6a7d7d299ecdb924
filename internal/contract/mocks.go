package contract

import (
	"context"

	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/mock"
)

// MockCommitSource is a mock implementation of CommitSource for testing.
type MockCommitSource struct {
	mock.Mock
}

var _ CommitSource = &MockCommitSource{} // Compile-time check

// FetchCommits implements the CommitSource interface.
func (m *MockCommitSource) FetchCommits(ctx context.Context, fullName string) ([]schema.RawCommit, error) {
	ret := m.Called(ctx, fullName)
	commits, _ := ret.Get(0).([]schema.RawCommit)
	return commits, ret.Error(1)
}

// FetchRepository implements the CommitSource interface.
func (m *MockCommitSource) FetchRepository(ctx context.Context, fullName string) (schema.Repository, error) {
	ret := m.Called(ctx, fullName)
	repo, _ := ret.Get(0).(schema.Repository)
	return repo, ret.Error(1)
}

// MockSummarizer is a mock implementation of Summarizer for testing.
type MockSummarizer struct {
	mock.Mock
}

var _ Summarizer = &MockSummarizer{} // Compile-time check

// GenerateSummary implements the Summarizer interface.
func (m *MockSummarizer) GenerateSummary(ctx context.Context, facts CommitFacts, candidates []string) SummaryResult {
	ret := m.Called(ctx, facts, candidates)
	result, _ := ret.Get(0).(SummaryResult)
	return result
}

// BatchGenerateSummaries implements the Summarizer interface.
func (m *MockSummarizer) BatchGenerateSummaries(ctx context.Context, items []BatchItem, candidates []string) []BatchResult {
	ret := m.Called(ctx, items, candidates)
	results, _ := ret.Get(0).([]BatchResult)
	return results
}

// TestModelAvailability implements the Summarizer interface.
func (m *MockSummarizer) TestModelAvailability(ctx context.Context, modelID string) bool {
	return m.Called(ctx, modelID).Bool(0)
}

// AvailableModels implements the Summarizer interface.
func (m *MockSummarizer) AvailableModels(ctx context.Context, cfg schema.ModelConfig) []string {
	ret := m.Called(ctx, cfg)
	ids, _ := ret.Get(0).([]string)
	return ids
}
