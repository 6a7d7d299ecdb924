// Package agg has aggregation logic for contributor activity.
package agg

import (
	"math"
	"slices"

	"github.com/gitlegend/gitlegend/schema"
)

// Aggregate groups commits by author GitHub id and sums their activity.
// Commits without a linked account are skipped. Identity fields come from the
// first commit seen per author, which is the most recent one for newest-first input.
// The result is ranked.
func Aggregate(commits []schema.ScoredCommit) []schema.ContributorRollup {
	index := make(map[string]int)
	var rollups []schema.ContributorRollup

	for _, c := range commits {
		if c.AuthorGitHubID == "" {
			continue
		}
		i, ok := index[c.AuthorGitHubID]
		if !ok {
			i = len(rollups)
			index[c.AuthorGitHubID] = i
			rollups = append(rollups, schema.ContributorRollup{
				GitHubID: c.AuthorGitHubID,
				Login:    c.AuthorLogin,
				Name:     c.AuthorName,
				Email:    c.AuthorEmail,
				Avatar:   c.AuthorAvatar,
			})
		}
		r := &rollups[i]
		r.CommitsCount++
		r.Additions += c.Additions
		r.Deletions += c.Deletions
	}
	return Rank(rollups)
}

// Rank sorts rollups by commit count, highest first, and recomputes the rank
// flags: the top 20% (at least one) are top contributors and the single
// highest is the first contributor. Ties keep their input order.
func Rank(rollups []schema.ContributorRollup) []schema.ContributorRollup {
	slices.SortStableFunc(rollups, func(a, b schema.ContributorRollup) int {
		return b.CommitsCount - a.CommitsCount
	})
	topN := TopCount(len(rollups))
	for i := range rollups {
		rollups[i].IsTopContributor = i < topN
		rollups[i].IsFirstContributor = i == 0
	}
	return rollups
}

// TopCount is how many of n contributors are flagged as top contributors.
func TopCount(n int) int {
	if n == 0 {
		return 0
	}
	return max(1, int(math.Ceil(float64(n)*schema.TopContributorPct)))
}
