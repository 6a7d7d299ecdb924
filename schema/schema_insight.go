package schema

import "time"

// RepositorySummary is the repository header of a biography.
type RepositorySummary struct {
	Name           string     `json:"name"`
	FullName       string     `json:"full_name"`
	Description    string     `json:"description,omitempty"`
	Language       string     `json:"language,omitempty"`
	Stars          int        `json:"stars"`
	Forks          int        `json:"forks"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
}

// TimeSpan bounds the persisted history.
type TimeSpan struct {
	FirstCommit *time.Time `json:"first_commit,omitempty"`
	LastCommit  *time.Time `json:"last_commit,omitempty"`
}

// BiographyMetrics are the headline numbers of a biography.
type BiographyMetrics struct {
	AvgCommitsPerMonth int    `json:"avg_commits_per_month"`
	TopContributor     string `json:"top_contributor"`
	FirstCommitAuthor  string `json:"first_commit_author"`
	MostActiveMonth    string `json:"most_active_month"`
}

// Biography tells the story of a repository.
type Biography struct {
	Repository        RepositorySummary `json:"repository"`
	TotalCommits      int               `json:"total_commits"`
	TotalContributors int               `json:"total_contributors"`
	TimeSpan          TimeSpan          `json:"time_span"`
	KeyMetrics        BiographyMetrics  `json:"key_metrics"`
}

// RelatedCommit is a short reference to another commit.
type RelatedCommit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	AuthorDate time.Time `json:"author_date"`
}

// Intel is a commit together with its surrounding context.
type Intel struct {
	Commit         ScoredCommit    `json:"commit"`
	RelatedCommits []RelatedCommit `json:"related_commits"`
}

// BugOrigin is the most likely commit behind a reported bug.
type BugOrigin struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	AuthorName string    `json:"author_name"`
	AuthorDate time.Time `json:"author_date"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// BugDiagnosis is the result of a bug origin search.
type BugDiagnosis struct {
	PotentialOrigin          *BugOrigin `json:"potential_origin"`
	BugDescription           string     `json:"bug_description"`
	SuspiciousPatterns       []string   `json:"suspicious_patterns"`
	RecommendedInvestigation []string   `json:"recommended_investigation"`
}

// ArchitecturalShift is one key commit classified as a structural change.
type ArchitecturalShift struct {
	SHA         string    `json:"sha"`
	Message     string    `json:"message"`
	AuthorDate  time.Time `json:"author_date"`
	Description string    `json:"description"`
	Impact      Impact    `json:"impact"`
}

// ArchitectureReport summarizes the architectural evolution of a repository.
type ArchitectureReport struct {
	Shifts           []ArchitecturalShift `json:"shifts"`
	MajorShifts      int                  `json:"major_shifts"`
	PrimaryAreas     []string             `json:"primary_areas"`
	EvolutionPattern string               `json:"evolution_pattern"`
}

// Guideline is one review rule.
type Guideline struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Severity    Impact `json:"severity"`
}

// ReviewGuidelines are review rules derived from commit history.
type ReviewGuidelines struct {
	Guidelines         []Guideline `json:"guidelines"`
	RepositoryPatterns []string    `json:"repository_patterns"`
	CommonIssues       []string    `json:"common_issues"`
	TeamPreferences    []string    `json:"team_preferences"`
}
