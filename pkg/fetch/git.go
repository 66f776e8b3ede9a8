package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// GitOptions configures a GitFetcher
type GitOptions struct {
	// Git is the git executable, "git" when empty.
	Git string
	// Depth limits history; 0 fetches everything.
	Depth int
	// BuildDir holds fresh workspaces when a request has no Dest.
	BuildDir string
	// CacheDir holds one scratch repository per source URL.
	CacheDir string
}

// GitFetcher fetches one ref of a git repository and exports exactly the
// tracked files of that commit into the workspace.
type GitFetcher struct {
	git      string
	depth    int
	buildDir string
	cacheDir string
	logger   zerolog.Logger
}

// NewGitFetcher creates a GitFetcher
func NewGitFetcher(opts GitOptions) *GitFetcher {
	git := opts.Git
	if git == "" {
		git = "git"
	}
	return &GitFetcher{
		git:      git,
		depth:    opts.Depth,
		buildDir: opts.BuildDir,
		cacheDir: opts.CacheDir,
		logger:   logging.GetLogger("fetch.git"),
	}
}

// Fetch runs git fetch for the ref, checks out FETCH_HEAD detached in the
// cached repository and exports the index into the workspace.
func (g *GitFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.URL == "" {
		return nil, errors.New(errors.ErrFetchFailed, "git fetch requires a url")
	}
	ref := req.Ref
	if ref == "" {
		ref = "HEAD"
	}

	done := logging.LogOperationStart(g.logger, "fetch")
	defer done()

	ws, cleanup, err := prepareWorkspace(g.buildDir, req)
	if err != nil {
		return nil, err
	}

	commit, err := g.checkout(ctx, req.URL, ref, ws)
	if err != nil {
		cleanup()
		return nil, fetchError(err, req, "failed to fetch %s at %s", req.URL, ref)
	}

	digest, err := Digest(ws)
	if err != nil {
		cleanup()
		return nil, fetchError(err, req, "failed to digest workspace %s", ws)
	}

	g.logger.Info().
		Str("url", req.URL).
		Str("ref", ref).
		Str("commit", commit).
		Str("workspace", ws).
		Msg("Fetched source")

	return &Result{
		Workspace: ws,
		URL:       req.URL,
		Ref:       ref,
		Commit:    commit,
		Digest:    digest,
	}, nil
}

func (g *GitFetcher) checkout(ctx context.Context, url, ref, ws string) (string, error) {
	repo, temp, err := g.repoDir(url)
	if err != nil {
		return "", err
	}
	if temp {
		defer func() {
			_ = os.RemoveAll(repo)
		}()
	}
	if _, err := os.Stat(filepath.Join(repo, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(repo, 0755); err != nil {
			return "", err
		}
		if _, err := g.run(ctx, repo, "init", "--quiet"); err != nil {
			return "", err
		}
	}

	args := []string{"fetch", "--quiet", "--no-tags"}
	if g.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(g.depth))
	}
	args = append(args, url, ref)
	if _, err := g.run(ctx, repo, args...); err != nil {
		return "", err
	}

	out, err := g.run(ctx, repo, "rev-parse", "FETCH_HEAD^{commit}")
	if err != nil {
		return "", err
	}
	commit := strings.TrimSpace(out)

	if _, err := g.run(ctx, repo, "checkout", "--quiet", "--force", "--detach", commit); err != nil {
		return "", err
	}
	prefix := strings.TrimSuffix(ws, string(os.PathSeparator)) + string(os.PathSeparator)
	if _, err := g.run(ctx, repo, "checkout-index", "--all", "--force", "--prefix="+prefix); err != nil {
		return "", err
	}
	return commit, nil
}

// repoDir is the scratch repository for url. Without a cache dir a
// throwaway directory under the build dir is used.
func (g *GitFetcher) repoDir(url string) (string, bool, error) {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:8])
	if g.cacheDir != "" {
		return filepath.Join(g.cacheDir, name), false, nil
	}
	if err := os.MkdirAll(g.buildDir, 0755); err != nil {
		return "", false, err
	}
	dir, err := os.MkdirTemp(g.buildDir, "repo-"+name+"-")
	return dir, true, err
}

// run executes git in dir and returns stdout. Failures carry the
// command's stderr.
func (g *GitFetcher) run(ctx context.Context, dir string, args ...string) (string, error) {
	logging.LogCommand(g.git, args)

	cmd := exec.CommandContext(ctx, g.git, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		g.logger.Debug().
			Err(err).
			Strs("args", args).
			Str("stderr", msg).
			Msg("git command failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrapf(err, errors.ErrFetchFailed, "git %s: %s", args[0], msg).
			WithDetail("command", append([]string{g.git}, args...))
	}
	return stdout.String(), nil
}
