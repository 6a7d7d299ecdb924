package agg

import (
	"fmt"
	"testing"

	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commit(id, login string, adds, dels int) schema.ScoredCommit {
	return schema.ScoredCommit{RawCommit: schema.RawCommit{
		AuthorGitHubID: id,
		AuthorLogin:    login,
		AuthorName:     login + " name",
		Additions:      adds,
		Deletions:      dels,
	}}
}

func TestAggregate(t *testing.T) {
	commits := []schema.ScoredCommit{
		commit("2", "lin-new", 5, 1),
		commit("1", "ada", 10, 2),
		commit("", "anonymous", 100, 100),
		commit("2", "lin-old", 3, 3),
		commit("1", "ada", 1, 0),
		commit("1", "ada", 0, 4),
	}

	rollups := Aggregate(commits)
	require.Len(t, rollups, 2)

	ada := rollups[0]
	assert.Equal(t, "1", ada.GitHubID)
	assert.Equal(t, 3, ada.CommitsCount)
	assert.Equal(t, 11, ada.Additions)
	assert.Equal(t, 6, ada.Deletions)
	assert.True(t, ada.IsFirstContributor)
	assert.True(t, ada.IsTopContributor)

	lin := rollups[1]
	assert.Equal(t, "lin-new", lin.Login, "identity comes from the most recent commit")
	assert.Equal(t, 2, lin.CommitsCount)
	assert.False(t, lin.IsFirstContributor)
	assert.False(t, lin.IsTopContributor)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]schema.ScoredCommit{commit("", "x", 1, 1)}))
}

func TestTopCount(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {1, 1}, {4, 1}, {5, 1}, {6, 2}, {10, 2}, {11, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, TopCount(tt.n))
		})
	}
}

func TestRankFlags(t *testing.T) {
	var rollups []schema.ContributorRollup
	for i := range 10 {
		rollups = append(rollups, schema.ContributorRollup{GitHubID: fmt.Sprint(i), CommitsCount: i})
	}
	ranked := Rank(rollups)

	first, top := 0, 0
	for i, r := range ranked {
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].CommitsCount, r.CommitsCount)
		}
		if r.IsFirstContributor {
			first++
			assert.True(t, r.IsTopContributor)
		}
		if r.IsTopContributor {
			top++
		}
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, top)
	assert.Equal(t, "9", ranked[0].GitHubID)
}

func TestRankTiesKeepOrder(t *testing.T) {
	ranked := Rank([]schema.ContributorRollup{
		{GitHubID: "a", CommitsCount: 3, IsFirstContributor: true},
		{GitHubID: "b", CommitsCount: 5},
		{GitHubID: "c", CommitsCount: 5},
	})
	assert.Equal(t, "b", ranked[0].GitHubID)
	assert.Equal(t, "c", ranked[1].GitHubID)
	assert.True(t, ranked[0].IsFirstContributor)
	assert.False(t, ranked[2].IsFirstContributor, "stale flags are cleared")
}
