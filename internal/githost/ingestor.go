// Package githost fetches repository metadata and commit history from GitHub.
package githost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/google/go-github/v62/github"
	"golang.org/x/sync/errgroup"
)

// Ingestor reads commit history through the GitHub REST API.
type Ingestor struct {
	client   *github.Client
	cap      int
	pageSize int
	workers  int
}

var _ contract.CommitSource = &Ingestor{} // Compile-time check

// NewIngestor builds an ingestor from the runtime config.
func NewIngestor(cfg *contract.Config) (*Ingestor, error) {
	client := github.NewClient(nil)
	if cfg.GitHubToken != "" {
		client = client.WithAuthToken(cfg.GitHubToken)
	}
	if cfg.GitHubBaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.GitHubBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = base
	}
	return NewIngestorWithClient(client, cfg.CommitCap, cfg.PageSize, cfg.Workers), nil
}

// NewIngestorWithClient wraps an existing client. Non-positive limits use defaults.
func NewIngestorWithClient(client *github.Client, commitCap, pageSize, workers int) *Ingestor {
	if commitCap < 1 {
		commitCap = schema.DefaultCommitCap
	}
	if pageSize < 1 {
		pageSize = schema.DefaultPageSize
	}
	if workers < 1 {
		workers = contract.DefaultWorkers
	}
	return &Ingestor{client: client, cap: commitCap, pageSize: pageSize, workers: workers}
}

// FetchCommits lists up to the commit cap, most recent first, then fills in
// stats and files for each commit. A failed detail fetch leaves zero stats.
func (in *Ingestor) FetchCommits(ctx context.Context, fullName string) ([]schema.RawCommit, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	var listed []*github.RepositoryCommit
	for page := 1; len(listed) < in.cap; page++ {
		opts := &github.CommitsListOptions{ListOptions: github.ListOptions{Page: page, PerPage: in.pageSize}}
		batch, _, err := in.client.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, classify(fullName, err)
		}
		if len(batch) == 0 {
			break
		}
		listed = append(listed, batch...)
	}
	if len(listed) > in.cap {
		listed = listed[:in.cap]
	}

	commits := make([]schema.RawCommit, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	for i, rc := range listed {
		commits[i] = toRawCommit(rc)
		g.Go(func() error {
			detail, _, err := in.client.Repositories.GetCommit(gctx, owner, name, rc.GetSHA(), nil)
			if err != nil {
				contract.LogWarn(fmt.Sprintf("Failed to fetch details for commit %s", contract.ShortSHA(rc.GetSHA())), err)
				return nil
			}
			applyDetail(&commits[i], detail)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return commits, nil
}

// FetchRepository returns metadata for owner/name.
func (in *Ingestor) FetchRepository(ctx context.Context, fullName string) (schema.Repository, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return schema.Repository{}, err
	}
	repo, _, err := in.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return schema.Repository{}, classify(fullName, err)
	}
	return schema.Repository{
		GitHubID:    repo.GetID(),
		Name:        repo.GetName(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		Private:     repo.GetPrivate(),
		URL:         repo.GetHTMLURL(),
		CreatedAt:   repo.GetCreatedAt().Time,
	}, nil
}

func toRawCommit(rc *github.RepositoryCommit) schema.RawCommit {
	c := rc.GetCommit()
	raw := schema.RawCommit{
		SHA:            rc.GetSHA(),
		Message:        c.GetMessage(),
		AuthorName:     c.GetAuthor().GetName(),
		AuthorEmail:    c.GetAuthor().GetEmail(),
		AuthorDate:     c.GetAuthor().GetDate().Time,
		CommitterName:  c.GetCommitter().GetName(),
		CommitterEmail: c.GetCommitter().GetEmail(),
		CommitterDate:  c.GetCommitter().GetDate().Time,
	}
	if author := rc.GetAuthor(); author != nil && author.GetID() != 0 {
		raw.AuthorLogin = author.GetLogin()
		raw.AuthorAvatar = author.GetAvatarURL()
		raw.AuthorGitHubID = fmt.Sprintf("%d", author.GetID())
	}
	return raw
}

func applyDetail(raw *schema.RawCommit, detail *github.RepositoryCommit) {
	raw.Additions = detail.GetStats().GetAdditions()
	raw.Deletions = detail.GetStats().GetDeletions()
	raw.Files = make([]schema.ChangedFile, 0, len(detail.Files))
	for _, f := range detail.Files {
		raw.Files = append(raw.Files, schema.ChangedFile{
			Filename:  f.GetFilename(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Changes:   f.GetChanges(),
		})
	}
}

// classify maps API failures onto the shared error taxonomy.
func classify(fullName string, err error) error {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", contract.ErrRepositoryNotFound, fullName)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", contract.ErrUpstream, fullName, err)
}

func splitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: repository must be owner/name, got %q", contract.ErrInvalidInput, fullName)
	}
	return owner, name, nil
}
