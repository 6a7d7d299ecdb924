package githost

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gitlegend/gitlegend/internal/contract"
)

// ParseRepositoryURL extracts owner and name from a GitHub repository reference.
// Accepted forms: https://github.com/owner/repo[.git], github.com/owner/repo, owner/repo.
func ParseRepositoryURL(raw string) (owner, name string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", fmt.Errorf("%w: repository url is empty", contract.ErrInvalidInput)
	}

	path := s
	if strings.Contains(s, "://") {
		u, perr := url.Parse(s)
		if perr != nil {
			return "", "", fmt.Errorf("%w: invalid repository url %q: %v", contract.ErrInvalidInput, raw, perr)
		}
		if !isGitHubHost(u.Host) {
			return "", "", fmt.Errorf("%w: not a GitHub url: %q", contract.ErrInvalidInput, raw)
		}
		path = u.Path
	} else if host, rest, ok := strings.Cut(s, "/"); ok && isGitHubHost(host) {
		path = rest
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: invalid GitHub repository reference %q", contract.ErrInvalidInput, raw)
	}
	return parts[0], parts[1], nil
}

func isGitHubHost(host string) bool {
	host = strings.ToLower(host)
	return host == "github.com" || host == "www.github.com"
}
