package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves a repository with total commits, sha-0 being the newest.
type fakeGitHub struct {
	total       int
	failDetail  map[string]bool
	listStatus  int
	listCalls   atomic.Int32
	detailCalls atomic.Int32
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		if f.listStatus != 0 {
			w.WriteHeader(f.listStatus)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		start := (page - 1) * perPage
		out := []map[string]any{}
		for i := start; i < min(start+perPage, f.total); i++ {
			out = append(out, listEntry(i))
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /repos/acme/widgets/commits/{sha}", func(w http.ResponseWriter, r *http.Request) {
		f.detailCalls.Add(1)
		sha := r.PathValue("sha")
		if f.failDetail[sha] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sha":   sha,
			"stats": map[string]int{"additions": 12, "deletions": 3, "total": 15},
			"files": []map[string]any{
				{"filename": "main.go", "additions": 10, "deletions": 2, "changes": 12},
				{"filename": "main_test.go", "additions": 2, "deletions": 1, "changes": 3},
			},
		})
	})
	mux.HandleFunc("GET /repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 99, "name": "widgets", "full_name": "acme/widgets",
			"description": "Widget factory", "language": "Go",
			"stargazers_count": 42, "forks_count": 7, "private": false,
			"html_url":   "https://github.com/acme/widgets",
			"created_at": "2020-01-02T03:04:05Z",
		})
	})
	return mux
}

func listEntry(i int) map[string]any {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(i) * time.Hour).Format(time.RFC3339)
	entry := map[string]any{
		"sha": fmt.Sprintf("sha-%d", i),
		"commit": map[string]any{
			"message":   fmt.Sprintf("commit %d", i),
			"author":    map[string]any{"name": "Ada", "email": "ada@example.com", "date": date},
			"committer": map[string]any{"name": "Ada", "email": "ada@example.com", "date": date},
		},
	}
	if i%2 == 0 {
		entry["author"] = map[string]any{"id": 1001, "login": "ada", "avatar_url": "https://avatars.test/ada"}
	}
	return entry
}

func newTestIngestor(t *testing.T, f *fakeGitHub, commitCap int) *Ingestor {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return NewIngestorWithClient(client, commitCap, 100, 4)
}

func TestFetchCommitsPagesUntilEmpty(t *testing.T) {
	f := &fakeGitHub{total: 150}
	in := newTestIngestor(t, f, 500)

	commits, err := in.FetchCommits(context.Background(), "acme/widgets")
	require.NoError(t, err)
	require.Len(t, commits, 150)
	assert.Equal(t, int32(3), f.listCalls.Load(), "two full pages plus the empty terminator")
	assert.Equal(t, int32(150), f.detailCalls.Load())

	first := commits[0]
	assert.Equal(t, "sha-0", first.SHA)
	assert.Equal(t, "commit 0", first.Message)
	assert.Equal(t, "Ada", first.AuthorName)
	assert.Equal(t, "1001", first.AuthorGitHubID)
	assert.Equal(t, "ada", first.AuthorLogin)
	assert.Equal(t, 12, first.Additions)
	assert.Equal(t, 3, first.Deletions)
	assert.Len(t, first.Files, 2)
	assert.Equal(t, "main.go", first.Files[0].Filename)

	assert.Empty(t, commits[1].AuthorGitHubID, "commits without a linked account have no id")
	assert.Equal(t, "sha-149", commits[149].SHA)
}

func TestFetchCommitsRespectsCap(t *testing.T) {
	f := &fakeGitHub{total: 1200}
	in := newTestIngestor(t, f, 500)

	commits, err := in.FetchCommits(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, commits, 500)
	assert.Equal(t, int32(5), f.listCalls.Load())
	assert.Equal(t, "sha-499", commits[499].SHA)
}

func TestFetchCommitsTruncatesPartialPage(t *testing.T) {
	f := &fakeGitHub{total: 300}
	in := newTestIngestor(t, f, 150)

	commits, err := in.FetchCommits(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, commits, 150)
	assert.Equal(t, int32(150), f.detailCalls.Load())
}

func TestFetchCommitsDetailFailureKeepsCommit(t *testing.T) {
	f := &fakeGitHub{total: 3, failDetail: map[string]bool{"sha-1": true}}
	in := newTestIngestor(t, f, 500)

	commits, err := in.FetchCommits(context.Background(), "acme/widgets")
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, "sha-1", commits[1].SHA)
	assert.Zero(t, commits[1].Additions)
	assert.Empty(t, commits[1].Files)
	assert.Equal(t, 12, commits[2].Additions)
}

func TestFetchCommitsErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		in := newTestIngestor(t, &fakeGitHub{listStatus: http.StatusNotFound}, 500)
		_, err := in.FetchCommits(context.Background(), "acme/widgets")
		assert.ErrorIs(t, err, contract.ErrRepositoryNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		in := newTestIngestor(t, &fakeGitHub{listStatus: http.StatusForbidden}, 500)
		_, err := in.FetchCommits(context.Background(), "acme/widgets")
		assert.ErrorIs(t, err, contract.ErrUpstream)
	})

	t.Run("bad name", func(t *testing.T) {
		in := newTestIngestor(t, &fakeGitHub{}, 500)
		_, err := in.FetchCommits(context.Background(), "widgets")
		assert.ErrorIs(t, err, contract.ErrInvalidInput)
	})
}

func TestFetchCommitsEmptyRepository(t *testing.T) {
	in := newTestIngestor(t, &fakeGitHub{}, 500)
	commits, err := in.FetchCommits(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestFetchRepository(t *testing.T) {
	in := newTestIngestor(t, &fakeGitHub{}, 500)
	repo, err := in.FetchRepository(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, int64(99), repo.GitHubID)
	assert.Equal(t, "acme/widgets", repo.FullName)
	assert.Equal(t, "Go", repo.Language)
	assert.Equal(t, 42, repo.Stars)
	assert.Equal(t, 7, repo.Forks)
	assert.Equal(t, 2020, repo.CreatedAt.Year())

	_, err = in.FetchRepository(context.Background(), "acme/missing")
	assert.ErrorIs(t, err, contract.ErrRepositoryNotFound)
}

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		raw         string
		owner, name string
		wantErr     bool
	}{
		{raw: "https://github.com/golang/go", owner: "golang", name: "go"},
		{raw: "https://github.com/golang/go.git", owner: "golang", name: "go"},
		{raw: "https://github.com/golang/go/", owner: "golang", name: "go"},
		{raw: "github.com/spf13/cobra", owner: "spf13", name: "cobra"},
		{raw: "spf13/viper", owner: "spf13", name: "viper"},
		{raw: "https://gitlab.com/a/b", wantErr: true},
		{raw: "https://github.com/only-owner", wantErr: true},
		{raw: "a/b/c", wantErr: true},
		{raw: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.raw), func(t *testing.T) {
			owner, name, err := ParseRepositoryURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, contract.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.name, name)
		})
	}
}
