// Package insight derives narrative views of a repository from its persisted
// commits and contributors. Every function here is pure.
package insight

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/gitlegend/gitlegend/schema"
)

const (
	maxRelatedCommits  = 5
	guidelineWindow    = 100
	bugConfidenceCap   = 0.9
	bugConfidenceBase  = 0.5
	bugConfidenceScale = 0.4
	daysPerMonth       = 30
)

// Biography summarizes the history of a repository.
func Biography(repo schema.Repository, commits []schema.ScoredCommit, contributors []schema.ContributorRollup) schema.Biography {
	bio := schema.Biography{
		Repository: schema.RepositorySummary{
			Name:           repo.Name,
			FullName:       repo.FullName,
			Description:    repo.Description,
			Language:       repo.Language,
			Stars:          repo.Stars,
			Forks:          repo.Forks,
			CreatedAt:      repo.CreatedAt,
			LastAnalyzedAt: repo.LastAnalyzedAt,
		},
	}
	if len(commits) == 0 {
		return bio
	}

	ordered := oldestFirst(commits)
	first, last := ordered[0], ordered[len(ordered)-1]
	firstAt, lastAt := first.AuthorDate, last.AuthorDate

	months := math.Max(1, lastAt.Sub(firstAt).Hours()/24/daysPerMonth)

	bio.TotalCommits = len(commits)
	bio.TotalContributors = len(contributors)
	bio.TimeSpan = schema.TimeSpan{FirstCommit: &firstAt, LastCommit: &lastAt}
	bio.KeyMetrics = schema.BiographyMetrics{
		AvgCommitsPerMonth: int(math.Round(float64(len(commits)) / months)),
		TopContributor:     topContributor(contributors),
		FirstCommitAuthor:  displayName(first.AuthorLogin, first.AuthorName),
		MostActiveMonth:    mostActiveMonth(ordered),
	}
	return bio
}

func topContributor(contributors []schema.ContributorRollup) string {
	if len(contributors) == 0 {
		return ""
	}
	best := contributors[0]
	for _, c := range contributors[1:] {
		if c.CommitsCount > best.CommitsCount {
			best = c
		}
	}
	return displayName(best.Login, best.Name)
}

func displayName(login, name string) string {
	switch {
	case login != "":
		return login
	case name != "":
		return name
	default:
		return "Unknown"
	}
}

// mostActiveMonth returns the YYYY-MM with the most commits; ties go to the earliest month.
func mostActiveMonth(ordered []schema.ScoredCommit) string {
	counts := make(map[string]int)
	var months []string
	for _, c := range ordered {
		m := c.AuthorDate.UTC().Format("2006-01")
		if counts[m] == 0 {
			months = append(months, m)
		}
		counts[m]++
	}
	best := ""
	for _, m := range months {
		if best == "" || counts[m] > counts[best] {
			best = m
		}
	}
	return best
}

// Intel returns a commit together with up to five other commits whose message
// contains its first word, newest first.
func Intel(target schema.ScoredCommit, commits []schema.ScoredCommit) schema.Intel {
	intel := schema.Intel{Commit: target, RelatedCommits: []schema.RelatedCommit{}}

	fields := strings.Fields(target.Message)
	if len(fields) == 0 {
		return intel
	}
	needle := strings.ToLower(fields[0])

	for _, c := range newestFirst(commits) {
		if c.SHA == target.SHA || !strings.Contains(strings.ToLower(c.Message), needle) {
			continue
		}
		intel.RelatedCommits = append(intel.RelatedCommits, schema.RelatedCommit{
			SHA:        c.SHA,
			Message:    c.Message,
			AuthorDate: c.AuthorDate,
		})
		if len(intel.RelatedCommits) == maxRelatedCommits {
			break
		}
	}
	return intel
}

var bugKeywords = []string{
	"fix", "bug", "error", "issue", "problem", "broken", "fail",
	"debug", "regression", "crash", "exception", "defect",
}

// DiagnoseBugOrigin picks the newest suspicious commit since the given time
// (zero means all history) as the likely origin of a bug.
func DiagnoseBugOrigin(description string, commits []schema.ScoredCommit, since time.Time) schema.BugDiagnosis {
	diagnosis := schema.BugDiagnosis{
		BugDescription:           description,
		SuspiciousPatterns:       []string{},
		RecommendedInvestigation: []string{},
	}

	var candidates []schema.ScoredCommit
	for _, c := range newestFirst(commits) {
		if !since.IsZero() && c.AuthorDate.Before(since) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return diagnosis
	}

	diagnosis.SuspiciousPatterns = []string{
		"High significance commits",
		"Commits with bug-related keywords",
		"Recent changes to core functionality",
	}
	diagnosis.RecommendedInvestigation = []string{
		"Review commits with high significance scores",
		"Check recent changes to affected modules",
		"Look for regression patterns in commit history",
	}

	for _, c := range candidates {
		if !mentionsAny(c.Message, bugKeywords...) && c.Significance <= schema.KeyCommitThreshold {
			continue
		}
		diagnosis.PotentialOrigin = &schema.BugOrigin{
			SHA:        c.SHA,
			Message:    c.Message,
			AuthorName: c.AuthorName,
			AuthorDate: c.AuthorDate,
			Confidence: math.Min(bugConfidenceCap, bugConfidenceBase+c.Significance*bugConfidenceScale),
			Reasoning:  "High significance commit with bug-related keywords in message",
		}
		break
	}
	return diagnosis
}

// ArchitecturalShifts classifies key commits as architectural changes and
// describes how the codebase evolved.
func ArchitecturalShifts(commits []schema.ScoredCommit) schema.ArchitectureReport {
	report := schema.ArchitectureReport{Shifts: []schema.ArchitecturalShift{}, PrimaryAreas: []string{}}
	if len(commits) == 0 {
		report.EvolutionPattern = "No commits found"
		return report
	}

	ordered := oldestFirst(commits)
	for _, c := range ordered {
		if !c.IsKeyCommit || c.Significance <= schema.KeyCommitThreshold {
			continue
		}
		description, impact := classifyShift(c.Message)
		report.Shifts = append(report.Shifts, schema.ArchitecturalShift{
			SHA:         c.SHA,
			Message:     c.Message,
			AuthorDate:  c.AuthorDate,
			Description: description,
			Impact:      impact,
		})
		if impact == schema.HighImpact {
			report.MajorShifts++
		}
	}
	report.PrimaryAreas = primaryAreas(ordered)
	report.EvolutionPattern = evolutionPattern(len(report.Shifts), report.MajorShifts)
	return report
}

func classifyShift(message string) (string, schema.Impact) {
	switch {
	case mentionsAny(message, "refactor", "rewrite"):
		return "Code refactoring or rewrite", schema.HighImpact
	case mentionsAny(message, "migrate", "migration"):
		return "Technology migration", schema.HighImpact
	case mentionsAny(message, "api", "interface"):
		return "API or interface changes", schema.MediumImpact
	case mentionsAny(message, "structure", "architecture"):
		return "Structural reorganization", schema.HighImpact
	default:
		return "Major architectural change", schema.MediumImpact
	}
}

var areaKeywords = []struct {
	area     string
	keywords []string
}{
	{"API", []string{"api"}},
	{"Frontend", []string{"ui", "frontend"}},
	{"Database", []string{"database", "db"}},
	{"Testing", []string{"test", "spec"}},
	{"Configuration", []string{"config", "setup"}},
}

// primaryAreas lists touched areas in order of first appearance.
func primaryAreas(commits []schema.ScoredCommit) []string {
	areas := []string{}
	for _, c := range commits {
		for _, ak := range areaKeywords {
			if mentionsAny(c.Message, ak.keywords...) && !slices.Contains(areas, ak.area) {
				areas = append(areas, ak.area)
			}
		}
	}
	return areas
}

func evolutionPattern(shifts, major int) string {
	switch {
	case shifts == 0:
		return "Steady incremental development"
	case major > 3:
		return "Rapid evolution with frequent architectural changes"
	case major > 1:
		return "Moderate evolution with occasional major changes"
	default:
		return "Stable evolution with minimal architectural disruption"
	}
}

// ReviewGuidelines derives review rules from the most recent hundred commits.
func ReviewGuidelines(commits []schema.ScoredCommit) schema.ReviewGuidelines {
	g := schema.ReviewGuidelines{
		Guidelines: []schema.Guideline{
			{Rule: "Clear Commit Messages", Description: "Write descriptive commit messages that explain the 'why' behind changes", Severity: schema.HighImpact},
			{Rule: "Significant Changes Review", Description: "Commits with high impact should be thoroughly reviewed", Severity: schema.HighImpact},
			{Rule: "Consistent Style", Description: "Maintain consistent coding style across the repository", Severity: schema.MediumImpact},
		},
		RepositoryPatterns: []string{},
		CommonIssues:       []string{},
		TeamPreferences:    []string{},
	}

	recent := newestFirst(commits)
	if len(recent) > guidelineWindow {
		recent = recent[:guidelineWindow]
	}

	var hasTests, hasBreaking bool
	for _, c := range recent {
		if mentionsAny(c.Message, "test", "spec") {
			hasTests = true
			g.RepositoryPatterns = appendOnce(g.RepositoryPatterns, "Test-driven development")
		}
		if mentionsAny(c.Message, "break") {
			hasBreaking = true
			g.CommonIssues = appendOnce(g.CommonIssues, "Breaking changes detected")
		}
		if mentionsAny(c.Message, "fix", "bug") {
			g.CommonIssues = appendOnce(g.CommonIssues, "Bug fixes common")
		}
		if mentionsAny(c.Message, "feat") {
			g.TeamPreferences = appendOnce(g.TeamPreferences, "Feature-focused development")
		}
	}

	if hasTests {
		g.Guidelines = append(g.Guidelines, schema.Guideline{
			Rule: "Test Coverage", Description: "Ensure adequate test coverage for new features", Severity: schema.MediumImpact,
		})
	}
	if hasBreaking {
		g.Guidelines = append(g.Guidelines, schema.Guideline{
			Rule: "Breaking Changes", Description: "Clearly document breaking changes and migration paths", Severity: schema.HighImpact,
		})
	}
	return g
}

func appendOnce(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func mentionsAny(message string, keywords ...string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func oldestFirst(commits []schema.ScoredCommit) []schema.ScoredCommit {
	out := slices.Clone(commits)
	slices.SortStableFunc(out, func(a, b schema.ScoredCommit) int {
		return a.AuthorDate.Compare(b.AuthorDate)
	})
	return out
}

func newestFirst(commits []schema.ScoredCommit) []schema.ScoredCommit {
	out := slices.Clone(commits)
	slices.SortStableFunc(out, func(a, b schema.ScoredCommit) int {
		return b.AuthorDate.Compare(a.AuthorDate)
	})
	return out
}
