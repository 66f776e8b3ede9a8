package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/formulary/pkg/builder"
	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/fetch"
)

// FakeBuilder writes Content at the formula's artifact path, or fails
type FakeBuilder struct {
	// Content of the produced binary; "#!/bin/sh\nexit 0\n" when empty.
	Content string
	// ExitCode > 0 simulates a failing build command.
	ExitCode int
	// SkipArtifact returns success without producing the artifact.
	SkipArtifact bool

	mu    sync.Mutex
	calls []builder.Workspace
}

// Build implements builder.Builder
func (b *FakeBuilder) Build(ctx context.Context, ws builder.Workspace) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, ws)
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.ExitCode > 0 {
		return "", errors.Newf(errors.ErrBuildFailed, "make build failed").
			WithDetail("exit_code", b.ExitCode)
	}

	artifact := filepath.Join(ws.StagePath, filepath.FromSlash(ws.Formula.Install.Artifact))
	if b.SkipArtifact {
		return artifact, nil
	}
	content := b.Content
	if content == "" {
		content = "#!/bin/sh\nexit 0\n"
	}
	if err := os.MkdirAll(filepath.Dir(artifact), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(artifact, []byte(content), 0644); err != nil {
		return "", err
	}
	return artifact, nil
}

// Calls returns the workspaces Build was invoked with
func (b *FakeBuilder) Calls() []builder.Workspace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]builder.Workspace(nil), b.calls...)
}

// FakeFetcher creates a workspace holding Files
type FakeFetcher struct {
	BuildDir string
	Files    map[string]string
	Commit   string
	// Err makes every fetch fail with FETCH_FAILED.
	Err error

	mu       sync.Mutex
	requests []fetch.Request
}

// Fetch implements fetch.Fetcher
func (f *FakeFetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, errors.Wrapf(f.Err, errors.ErrFetchFailed, "failed to fetch %s", req.URL)
	}

	ws := req.Dest
	if ws == "" {
		if err := os.MkdirAll(f.BuildDir, 0755); err != nil {
			return nil, err
		}
		var err error
		ws, err = os.MkdirTemp(f.BuildDir, req.Name+"-")
		if err != nil {
			return nil, err
		}
	}
	for rel, content := range f.Files {
		path := filepath.Join(ws, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, err
		}
	}

	digest, err := fetch.Digest(ws)
	if err != nil {
		return nil, err
	}
	return &fetch.Result{
		Workspace: ws,
		URL:       req.URL,
		Ref:       req.Ref,
		Commit:    f.Commit,
		Digest:    digest,
	}, nil
}

// Requests returns the requests Fetch received
func (f *FakeFetcher) Requests() []fetch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetch.Request(nil), f.requests...)
}

// Lookup returns a deps.LookupFunc that finds exactly the given tools
func Lookup(tools map[string]string) deps.LookupFunc {
	return func(name string) (string, error) {
		if p, ok := tools[name]; ok {
			return p, nil
		}
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
}
