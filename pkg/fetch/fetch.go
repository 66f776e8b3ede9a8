// Package fetch implements the fetch_source hook: a snapshot of the
// project at a ref is placed into a fresh scratch workspace. A failed
// fetch never leaves a workspace behind.
package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/formula"
)

// Request describes one fetch
type Request struct {
	Name string
	URL  string
	Ref  string
	// Dest is the workspace to populate. It must not exist or be empty.
	// When empty a fresh directory is created under the fetcher's build dir.
	Dest string
}

// Result describes a populated workspace
type Result struct {
	Workspace string
	URL       string
	Ref       string
	// Commit is the resolved commit for git sources, empty otherwise.
	Commit string
	// Digest is the deterministic content digest of the workspace.
	Digest string
}

// Fetcher retrieves a source snapshot into a workspace
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// RequestFor builds the request for a formula. Relative dir sources are
// taken relative to the formula file.
func RequestFor(f *formula.Formula, head bool) Request {
	req := Request{
		Name: f.Name,
		URL:  f.FetchURL(head),
		Ref:  f.FetchRef(head),
	}
	if f.SourceUsing() == formula.UsingDir && !f.IsBundled() && f.File != "" {
		src := strings.TrimPrefix(req.URL, "file://")
		if !filepath.IsAbs(src) {
			req.URL = filepath.Join(filepath.Dir(f.File), src)
		}
	}
	return req
}

// ForFormula picks the fetcher matching the formula's download strategy
func ForFormula(f *formula.Formula, git, dir Fetcher) Fetcher {
	if f.SourceUsing() == formula.UsingDir {
		return dir
	}
	return git
}

// prepareWorkspace creates the destination and returns a cleanup that
// removes it. A pre-existing non-empty destination is refused.
func prepareWorkspace(buildDir string, req Request) (string, func(), error) {
	if req.Dest == "" {
		if err := os.MkdirAll(buildDir, 0755); err != nil {
			return "", nil, errors.Wrapf(err, errors.ErrFetchFailed, "failed to create build dir %s", buildDir)
		}
		name := req.Name
		if name == "" {
			name = "source"
		}
		ws, err := os.MkdirTemp(buildDir, name+"-")
		if err != nil {
			return "", nil, errors.Wrap(err, errors.ErrFetchFailed, "failed to create workspace")
		}
		return ws, func() { _ = os.RemoveAll(ws) }, nil
	}

	ws, err := filepath.Abs(req.Dest)
	if err != nil {
		return "", nil, errors.Wrapf(err, errors.ErrFetchFailed, "invalid destination %s", req.Dest)
	}
	entries, err := os.ReadDir(ws)
	switch {
	case err == nil && len(entries) > 0:
		return "", nil, errors.Newf(errors.ErrFetchFailed, "destination %s is not empty", ws)
	case err == nil:
		// existing empty dir: clean its contents only
		return ws, func() { clearDir(ws) }, nil
	case !os.IsNotExist(err):
		return "", nil, errors.Wrapf(err, errors.ErrFetchFailed, "failed to read destination %s", ws)
	}
	if err := os.MkdirAll(ws, 0755); err != nil {
		return "", nil, errors.Wrapf(err, errors.ErrFetchFailed, "failed to create destination %s", ws)
	}
	return ws, func() { _ = os.RemoveAll(ws) }, nil
}

func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}

func fetchError(err error, req Request, format string, args ...interface{}) error {
	if fe, ok := errors.AsFormularyError(err); ok && fe.Code == errors.ErrFetchFailed {
		return fe.WithDetail("url", req.URL).WithDetail("ref", req.Ref)
	}
	return errors.Wrapf(err, errors.ErrFetchFailed, format, args...).
		WithDetail("url", req.URL).
		WithDetail("ref", req.Ref)
}
