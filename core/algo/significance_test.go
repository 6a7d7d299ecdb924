package algo

import (
	"math"
	"testing"

	"github.com/gitlegend/gitlegend/schema"
	"github.com/stretchr/testify/assert"
)

func filesN(n int) []schema.ChangedFile {
	files := make([]schema.ChangedFile, n)
	for i := range files {
		files[i].Filename = "f.go"
	}
	return files
}

func TestSignificance(t *testing.T) {
	tests := []struct {
		name     string
		commit   schema.RawCommit
		expected float64
		key      bool
	}{
		{
			name:     "typo fix",
			commit:   schema.RawCommit{Message: "fix typo", Additions: 1, Files: filesN(1)},
			expected: 0.7 * math.Log(2),
			key:      false,
		},
		{
			name:     "release keyword only",
			commit:   schema.RawCommit{Message: "Release 2024"},
			expected: 0.3,
		},
		{
			name:     "version tag",
			commit:   schema.RawCommit{Message: "bump to v2.10"},
			expected: 0.3,
		},
		{
			name:     "versioning does not match",
			commit:   schema.RawCommit{Message: "semantic versioning docs"},
			expected: 0,
		},
		{
			name:     "merge keyword only",
			commit:   schema.RawCommit{Message: "Merge branch 'main'"},
			expected: 0.2,
		},
		{
			name:     "merge and release",
			commit:   schema.RawCommit{Message: "Merge release branch"},
			expected: 0.5,
		},
		{
			name:     "small but sharp",
			commit:   schema.RawCommit{Message: "tune", Additions: 3, Deletions: 2, Files: filesN(1)},
			expected: 0.4*math.Log(6) + 0.3*math.Log(2),
			key:      true,
		},
		{
			name:     "large release capped",
			commit:   schema.RawCommit{Message: "Release v1.2", Additions: 100, Deletions: 20, Files: filesN(3)},
			expected: 1,
			key:      true,
		},
		{
			name:     "missing detail data",
			commit:   schema.RawCommit{Message: "refactor everything"},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Significance(tt.commit)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
			assert.Equal(t, tt.key, IsKeyCommit(got))
		})
	}
}

func TestKeyCommitThresholdIsStrict(t *testing.T) {
	assert.False(t, IsKeyCommit(0.7))
	assert.True(t, IsKeyCommit(0.7000001))
}

func TestScoreAll(t *testing.T) {
	raw := []schema.RawCommit{
		{SHA: "a", Message: "Release v1.0", Additions: 50, Files: filesN(2)},
		{SHA: "b", Message: "docs"},
	}
	scored := ScoreAll(raw)
	assert.Len(t, scored, 2)
	assert.Equal(t, "a", scored[0].SHA)
	assert.Equal(t, 2, scored[0].FilesChanged)
	assert.True(t, scored[0].IsKeyCommit)
	assert.Equal(t, "b", scored[1].SHA)
	assert.False(t, scored[1].IsKeyCommit)
	assert.Empty(t, scored[1].Summary)
}

func FuzzSignificance(f *testing.F) {
	f.Add("Merge pull request #1", 10, 5, 3)
	f.Add("", 0, 0, 0)
	f.Add("release v1.2.3", 100000, 100000, 500)
	f.Fuzz(func(t *testing.T, msg string, adds, dels, files int) {
		if adds < 0 || dels < 0 || adds > 1<<30 || dels > 1<<30 || files < 0 || files > 10000 {
			t.Skip()
		}
		got := Significance(schema.RawCommit{Message: msg, Additions: adds, Deletions: dels, Files: filesN(files)})
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Fatalf("significance out of range: %v", got)
		}
	})
}
