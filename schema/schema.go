// Package schema has models and constants for all parts of gitlegend.
package schema

import "time"

// ChangedFile summarizes one file touched by a commit.
type ChangedFile struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// RawCommit is a commit as fetched from the hosting service.
// AuthorGitHubID is empty when the commit has no linked account.
type RawCommit struct {
	SHA            string        `json:"sha"`
	Message        string        `json:"message"`
	AuthorName     string        `json:"author_name"`
	AuthorEmail    string        `json:"author_email"`
	AuthorLogin    string        `json:"author_login,omitempty"`
	AuthorAvatar   string        `json:"author_avatar,omitempty"`
	AuthorGitHubID string        `json:"author_github_id,omitempty"`
	AuthorDate     time.Time     `json:"author_date"`
	CommitterName  string        `json:"committer_name"`
	CommitterEmail string        `json:"committer_email"`
	CommitterDate  time.Time     `json:"committer_date"`
	Additions      int           `json:"additions"`
	Deletions      int           `json:"deletions"`
	Files          []ChangedFile `json:"files,omitempty"`
}

// ScoredCommit is a RawCommit with its significance and optional summary.
type ScoredCommit struct {
	RawCommit
	FilesChanged int     `json:"files_changed"`
	Significance float64 `json:"significance"`
	IsKeyCommit  bool    `json:"is_key_commit"`
	Summary      string  `json:"summary,omitempty"`
	ModelUsed    string  `json:"model_used,omitempty"`
}

// ContributorRollup holds per-author totals for one repository.
// IsFirstContributor marks the highest-ranked author by commit count.
type ContributorRollup struct {
	GitHubID           string `json:"github_id"`
	Login              string `json:"login"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Avatar             string `json:"avatar"`
	CommitsCount       int    `json:"commits_count"`
	Additions          int    `json:"additions"`
	Deletions          int    `json:"deletions"`
	IsFirstContributor bool   `json:"is_first_contributor"`
	IsTopContributor   bool   `json:"is_top_contributor"`
}

// Repository is an imported hosting-service repository.
type Repository struct {
	ID             string     `json:"id"`
	GitHubID       int64      `json:"github_id"`
	Name           string     `json:"name"`
	FullName       string     `json:"full_name"`
	Description    string     `json:"description,omitempty"`
	Language       string     `json:"language,omitempty"`
	Stars          int        `json:"stars"`
	Forks          int        `json:"forks"`
	Private        bool       `json:"private"`
	URL            string     `json:"url"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
}

// CommitQuery filters commit listings.
type CommitQuery struct {
	KeyOnly bool
	Since   time.Time
	Limit   int // 0 = no limit
}
