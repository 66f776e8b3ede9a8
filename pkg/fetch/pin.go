package fetch

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// RefPinner resolves a symbolic ref (branch, tag, HEAD) to a commit SHA
type RefPinner interface {
	Pin(ctx context.Context, url, ref string) (string, error)
}

// ResolveToken picks a GitHub token: the configured one, then
// GITHUB_TOKEN, then `gh auth token`. Empty means anonymous access.
func ResolveToken(ctx context.Context, configured string) string {
	if tok := strings.TrimSpace(configured); tok != "" {
		return tok
	}
	if tok := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); tok != "" {
		return tok
	}
	if _, err := exec.LookPath("gh"); err != nil {
		return ""
	}

	cmdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", "github.com")
	cmd.Env = append(os.Environ(), "GH_PAGER=cat")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return ""
	}
	return tok
}

// GitHubPinner pins refs of github.com repositories through the REST API
// and delegates every other URL to Fallback.
type GitHubPinner struct {
	client   *github.Client
	Fallback RefPinner
	logger   zerolog.Logger
}

// NewGitHubPinner creates a pinner authenticated with token when non-empty
func NewGitHubPinner(ctx context.Context, token string, fallback RefPinner) *GitHubPinner {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &GitHubPinner{
		client:   github.NewClient(httpClient),
		Fallback: fallback,
		logger:   logging.GetLogger("fetch.pin"),
	}
}

// WithBaseURL points the API client at another endpoint (GitHub
// Enterprise or a test server). base must end with a slash.
func (p *GitHubPinner) WithBaseURL(base string) (*GitHubPinner, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid api url %s", base)
	}
	p.client.BaseURL = u
	return p, nil
}

// Pin resolves ref to a full commit SHA
func (p *GitHubPinner) Pin(ctx context.Context, rawURL, ref string) (string, error) {
	owner, repo, ok := ParseGitHubURL(rawURL)
	if !ok {
		if p.Fallback == nil {
			return "", errors.Newf(errors.ErrFetchFailed, "cannot pin %s: not a github.com repository", rawURL)
		}
		return p.Fallback.Pin(ctx, rawURL, ref)
	}

	sha, _, err := p.client.Repositories.GetCommitSHA1(ctx, owner, repo, ref, "")
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFetchFailed, "failed to resolve %s@%s on GitHub", owner+"/"+repo, ref).
			WithDetail("url", rawURL).
			WithDetail("ref", ref)
	}

	p.logger.Debug().
		Str("repo", owner+"/"+repo).
		Str("ref", ref).
		Str("commit", sha).
		Msg("Pinned ref")
	return sha, nil
}

// ParseGitHubURL extracts owner and repository from https, ssh and scp
// style github.com URLs.
func ParseGitHubURL(raw string) (owner, repo string, ok bool) {
	var path string
	switch {
	case strings.HasPrefix(raw, "git@github.com:"):
		path = strings.TrimPrefix(raw, "git@github.com:")
	default:
		u, err := url.Parse(raw)
		if err != nil || !strings.EqualFold(u.Host, "github.com") {
			return "", "", false
		}
		path = u.Path
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// LsRemotePinner pins refs with `git ls-remote`
type LsRemotePinner struct {
	git *GitFetcher
}

// NewLsRemotePinner reuses the git executable and logging of g
func NewLsRemotePinner(g *GitFetcher) *LsRemotePinner {
	return &LsRemotePinner{git: g}
}

// Pin returns ref unchanged when it already looks like a full SHA
func (p *LsRemotePinner) Pin(ctx context.Context, rawURL, ref string) (string, error) {
	if isFullSHA(ref) {
		return ref, nil
	}
	out, err := p.git.run(ctx, "", "ls-remote", rawURL, ref)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && isFullSHA(fields[0]) {
			return fields[0], nil
		}
	}
	return "", errors.Newf(errors.ErrFetchFailed, "ref %s not found in %s", ref, rawURL).
		WithDetail("url", rawURL).
		WithDetail("ref", ref)
}

func isFullSHA(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
