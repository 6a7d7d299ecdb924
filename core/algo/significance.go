// Package algo holds the pure scoring functions of the analysis pipeline.
package algo

import (
	"math"
	"regexp"
	"strings"

	"github.com/gitlegend/gitlegend/schema"
)

var releasePattern = regexp.MustCompile(`(?i)\b(release|version|v\d+\.\d+)\b`)

// Significance weights.
const (
	wChanges = 0.4
	wFiles   = 0.3
	wMerge   = 0.2
	wRelease = 0.3
)

// Significance returns a commit's importance in [0, 1]. Size grows
// logarithmically; merge and release keywords add a fixed bonus.
func Significance(c schema.RawCommit) float64 {
	totalChanges := float64(c.Additions + c.Deletions)
	filesChanged := float64(len(c.Files))

	raw := wChanges*math.Log(totalChanges+1) + wFiles*math.Log(filesChanged+1)
	if strings.Contains(strings.ToLower(c.Message), "merge") {
		raw += wMerge
	}
	if releasePattern.MatchString(c.Message) {
		raw += wRelease
	}
	return math.Min(1, raw)
}

// IsKeyCommit reports whether a significance crosses the key-commit threshold.
func IsKeyCommit(significance float64) bool {
	return significance > schema.KeyCommitThreshold
}

// Score turns a raw commit into a scored one.
func Score(c schema.RawCommit) schema.ScoredCommit {
	sig := Significance(c)
	return schema.ScoredCommit{
		RawCommit:    c,
		FilesChanged: len(c.Files),
		Significance: sig,
		IsKeyCommit:  IsKeyCommit(sig),
	}
}

// ScoreAll scores commits preserving order.
func ScoreAll(commits []schema.RawCommit) []schema.ScoredCommit {
	out := make([]schema.ScoredCommit, len(commits))
	for i, c := range commits {
		out[i] = Score(c)
	}
	return out
}
