package schema

import "time"

// AnalysisRun tracks one pipeline invocation for a repository.
type AnalysisRun struct {
	ID                 string         `json:"id"`
	RepositoryID       string         `json:"repository_id"`
	Status             AnalysisStatus `json:"status"`
	Progress           int            `json:"progress"`
	Error              string         `json:"error,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	CommitsFound       int            `json:"commits_found"`
	KeyCommits         int            `json:"key_commits"`
	SummariesGenerated int            `json:"summaries_generated"`
	ModelUsage         map[string]int `json:"model_usage,omitempty"`
}

// AnalysisResult carries the counters written when a run completes.
type AnalysisResult struct {
	CommitsFound       int
	KeyCommits         int
	SummariesGenerated int
	ModelUsage         map[string]int
	CompletedAt        time.Time
}

// HealthBreakdown holds the per-dimension health scores, each 0-100.
type HealthBreakdown struct {
	Activity             int `json:"activity"`
	ContributorDiversity int `json:"contributor_diversity"`
	CodeQuality          int `json:"code_quality"`
	Maintenance          int `json:"maintenance"`
}

// HealthMetrics holds the raw metrics behind a health score.
type HealthMetrics struct {
	TotalCommits       int     `json:"total_commits"`
	ActiveContributors int     `json:"active_contributors"`
	CommitFrequency    float64 `json:"commit_frequency"`
	AvgResponseTime    float64 `json:"avg_response_time"`
	BugFixRate         float64 `json:"bug_fix_rate"`
}

// HealthScore is derived on demand from persisted commits and contributors.
type HealthScore struct {
	Overall         int             `json:"overall"`
	Breakdown       HealthBreakdown `json:"breakdown"`
	Recommendations []string        `json:"recommendations"`
	Metrics         HealthMetrics   `json:"metrics"`
}

// DashboardStats summarizes everything in the store.
type DashboardStats struct {
	Repositories   int `json:"repositories"`
	Analyses       int `json:"analyses"`
	Processing     int `json:"processing"`
	Commits        int `json:"commits"`
	RecentActivity int `json:"recent_activity"`
}
