package algo

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/gitlegend/gitlegend/schema"
)

// Health weights for the overall score.
const (
	wActivity    = 0.3
	wDiversity   = 0.2
	wQuality     = 0.3
	wMaintenance = 0.2
)

// Health thresholds.
const (
	baseQuality         = 70.0
	testBonus           = 10.0
	revertPenalty       = 15.0
	bugFixBonus         = 10.0
	testShare           = 0.10
	revertShare         = 0.05
	bugFixBonusRate     = 0.10
	lowBugFixRate       = 0.05
	responseEstimateDay = 7.0
)

// Recommendation messages, emitted in this order.
const (
	RecNoCommits       = "No commits found to analyze health"
	RecLowActivity     = "Increase commit frequency to maintain project momentum"
	RecLowDiversity    = "Encourage more contributors to reduce dependency on key developers"
	RecLowQuality      = "Improve code quality practices: add more tests and reduce reverts"
	RecLowMaintenance  = "Focus on maintenance: address issues and keep dependencies updated"
	RecLowBugFixRate   = "Consider implementing more rigorous testing to catch bugs earlier"
	RecFewContributors = "Grow the contributor base through better documentation and onboarding"
	RecHealthLooksGood = "Project health looks good! Continue current practices"
)

// ComputeHealth derives a health score from persisted commits and contributors.
// now anchors the 30 and 90 day windows.
func ComputeHealth(commits []schema.ScoredCommit, contributors []schema.ContributorRollup, now time.Time) schema.HealthScore {
	if len(commits) == 0 {
		return schema.HealthScore{Recommendations: []string{RecNoCommits}}
	}

	metrics := healthMetrics(commits, contributors, now)
	breakdown := schema.HealthBreakdown{
		Activity:             roundInt(activityScore(metrics)),
		ContributorDiversity: roundInt(diversityScore(commits, contributors)),
		CodeQuality:          roundInt(qualityScore(commits)),
		Maintenance:          roundInt(maintenanceScore(commits, metrics, now)),
	}
	overall := wActivity*float64(breakdown.Activity) +
		wDiversity*float64(breakdown.ContributorDiversity) +
		wQuality*float64(breakdown.CodeQuality) +
		wMaintenance*float64(breakdown.Maintenance)

	return schema.HealthScore{
		Overall:         roundInt(overall),
		Breakdown:       breakdown,
		Recommendations: recommendations(breakdown, metrics),
		Metrics:         metrics,
	}
}

func healthMetrics(commits []schema.ScoredCommit, contributors []schema.ContributorRollup, now time.Time) schema.HealthMetrics {
	activeSince := now.Add(-schema.ActiveWindow)

	active := 0
	for _, c := range contributors {
		if slices.ContainsFunc(commits, func(sc schema.ScoredCommit) bool {
			return authoredBy(sc, c) && !sc.AuthorDate.Before(activeSince)
		}) {
			active++
		}
	}

	oldest, newest := commits[0].AuthorDate, commits[0].AuthorDate
	for _, c := range commits[1:] {
		if c.AuthorDate.Before(oldest) {
			oldest = c.AuthorDate
		}
		if c.AuthorDate.After(newest) {
			newest = c.AuthorDate
		}
	}
	spanDays := newest.Sub(oldest).Hours() / 24
	weeksSpan := math.Max(1, spanDays/7)

	bugFixes := countMentions(commits, "fix", "bug")
	var avgResponse float64
	if countMentions(commits, "fix") > 0 {
		avgResponse = responseEstimateDay
	}

	return schema.HealthMetrics{
		TotalCommits:       len(commits),
		ActiveContributors: active,
		CommitFrequency:    float64(len(commits)) / weeksSpan,
		AvgResponseTime:    avgResponse,
		BugFixRate:         float64(bugFixes) / float64(len(commits)),
	}
}

// authoredBy matches on GitHub id when both sides carry one, otherwise on name.
func authoredBy(c schema.ScoredCommit, r schema.ContributorRollup) bool {
	if c.AuthorGitHubID != "" && r.GitHubID != "" {
		return c.AuthorGitHubID == r.GitHubID
	}
	return c.AuthorName != "" && c.AuthorName == r.Name
}

func activityScore(m schema.HealthMetrics) float64 {
	if m.ActiveContributors == 0 {
		return 0
	}
	return math.Min(100, float64(m.ActiveContributors)*20+m.CommitFrequency*10)
}

func diversityScore(commits []schema.ScoredCommit, contributors []schema.ContributorRollup) float64 {
	if len(contributors) == 0 {
		return 0
	}
	top := 0
	for _, c := range contributors {
		top = max(top, c.CommitsCount)
	}
	concentration := float64(top) / float64(len(commits))
	return math.Max(0, 100-concentration*100)
}

func qualityScore(commits []schema.ScoredCommit) float64 {
	score := baseQuality
	total := float64(len(commits))
	if float64(countMentions(commits, "test", "spec")) >= total*testShare {
		score += testBonus
	}
	if float64(countMentions(commits, "revert")) >= total*revertShare {
		score -= revertPenalty
	}
	return clamp(score, 0, 100)
}

func maintenanceScore(commits []schema.ScoredCommit, m schema.HealthMetrics, now time.Time) float64 {
	since := now.Add(-schema.MaintenanceWindow)
	recent := 0
	for _, c := range commits {
		if !c.AuthorDate.Before(since) {
			recent++
		}
	}
	score := math.Min(100, float64(recent)/float64(len(commits))*100)
	if m.BugFixRate > bugFixBonusRate {
		score += bugFixBonus
	}
	return clamp(score, 0, 100)
}

func recommendations(b schema.HealthBreakdown, m schema.HealthMetrics) []string {
	var recs []string
	if b.Activity < 50 {
		recs = append(recs, RecLowActivity)
	}
	if b.ContributorDiversity < 40 {
		recs = append(recs, RecLowDiversity)
	}
	if b.CodeQuality < 60 {
		recs = append(recs, RecLowQuality)
	}
	if b.Maintenance < 50 {
		recs = append(recs, RecLowMaintenance)
	}
	if m.BugFixRate < lowBugFixRate {
		recs = append(recs, RecLowBugFixRate)
	}
	if m.ActiveContributors < 2 {
		recs = append(recs, RecFewContributors)
	}
	if len(recs) == 0 {
		recs = append(recs, RecHealthLooksGood)
	}
	return recs
}

// countMentions counts commits whose lowercased message contains any keyword.
func countMentions(commits []schema.ScoredCommit, keywords ...string) int {
	n := 0
	for _, c := range commits {
		msg := strings.ToLower(c.Message)
		for _, kw := range keywords {
			if strings.Contains(msg, kw) {
				n++
				break
			}
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
