// Package lifecycle runs a formula's hooks strictly in order:
// resolve_dependencies, fetch_source, install, test. Each hook succeeds or
// fails as a whole; the first failure skips every later hook and is the
// error returned to the caller.
package lifecycle

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/fetch"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/install"
	"github.com/arthur-debert/formulary/pkg/logging"
	"github.com/arthur-debert/formulary/pkg/smoke"
)

// Hook names a lifecycle stage
type Hook string

const (
	HookDependencies Hook = "resolve_dependencies"
	HookFetch        Hook = "fetch_source"
	HookInstall      Hook = "install"
	HookTest         Hook = "test"
)

// Hooks lists the stages in execution order
var Hooks = []Hook{HookDependencies, HookFetch, HookInstall, HookTest}

// Status is the outcome of one hook
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// HookResult records one hook run
type HookResult struct {
	Hook     Hook
	Status   Status
	Duration time.Duration
	Detail   string
	Err      error
}

// Report is the outcome of a run
type Report struct {
	Formula    string
	PkgVersion string
	Hooks      []HookResult

	Dependencies []deps.Resolved
	Fetch        *fetch.Result
	Install      *install.Result
	Test         *smoke.Outcome
	Link         string
	Warnings     []string
}

// Failed returns the failing hook, or nil
func (r *Report) Failed() *HookResult {
	for i := range r.Hooks {
		if r.Hooks[i].Status == StatusFailed {
			return &r.Hooks[i]
		}
	}
	return nil
}

// Resolver is the resolve_dependencies capability
type Resolver interface {
	Resolve(ctx context.Context, f *formula.Formula, includeTest bool) ([]deps.Resolved, error)
}

// Installer is the install capability
type Installer interface {
	Install(ctx context.Context, f *formula.Formula, src install.Source, opts install.Options) (*install.Result, error)
	Link(r *install.Receipt) (string, error)
}

// Tester is the test capability
type Tester interface {
	Test(ctx context.Context, f *formula.Formula, target smoke.Target) (*smoke.Outcome, error)
}

// Observer is told about hook progress, e.g. to draw it
type Observer interface {
	HookStarted(hook Hook)
	HookFinished(result HookResult)
}

// Options tune one run
type Options struct {
	// Head installs the head URL's default branch.
	Head bool
	// Pin resolves the ref to a commit before fetching.
	Pin bool
	// Force replaces an installed keg of the same version.
	Force bool
	// Link creates the <root>/bin link after install.
	Link bool
	// SkipTest reports the test hook as skipped.
	SkipTest bool
	// DryRun only resolves dependencies.
	DryRun bool
	// KeepWorkspace leaves the scratch build path on disk.
	KeepWorkspace bool
}

// Deps are the capabilities a Runner drives
type Deps struct {
	Resolver   Resolver
	GitFetcher fetch.Fetcher
	DirFetcher fetch.Fetcher
	Pinner     fetch.RefPinner
	Installer  Installer
	Tester     Tester
	Observer   Observer
}

// Runner evaluates formulas
type Runner struct {
	d      Deps
	logger zerolog.Logger
}

// NewRunner creates a Runner
func NewRunner(d Deps) *Runner {
	return &Runner{d: d, logger: logging.GetLogger("lifecycle")}
}

// Run evaluates every hook of f. The returned report is complete even on
// error: hooks after the failing one are marked skipped.
func (r *Runner) Run(ctx context.Context, f *formula.Formula, opts Options) (*Report, error) {
	rep := &Report{Formula: f.Name, PkgVersion: f.PkgVersion()}

	var workspace string
	defer func() {
		if workspace != "" && !opts.KeepWorkspace {
			_ = os.RemoveAll(workspace)
		}
	}()

	steps := []struct {
		hook Hook
		skip string
		fn   func() (string, error)
	}{
		{HookDependencies, "", func() (string, error) {
			resolved, err := r.d.Resolver.Resolve(ctx, f, !opts.SkipTest && !opts.DryRun)
			rep.Dependencies = resolved
			return depsDetail(resolved), err
		}},
		{HookFetch, dryRun(opts), func() (string, error) {
			res, err := r.fetch(ctx, f, opts)
			if err != nil {
				return "", err
			}
			workspace = res.Workspace
			rep.Fetch = res
			return fetchDetail(res), nil
		}},
		{HookInstall, dryRun(opts), func() (string, error) {
			res, err := r.d.Installer.Install(ctx, f, install.Source{
				Workspace: rep.Fetch.Workspace,
				URL:       rep.Fetch.URL,
				Ref:       rep.Fetch.Ref,
				Commit:    rep.Fetch.Commit,
				Digest:    rep.Fetch.Digest,
				Head:      opts.Head,
			}, install.Options{Force: opts.Force, KeepBuild: opts.KeepWorkspace})
			if err != nil {
				return "", err
			}
			rep.Install = res
			if opts.Link {
				link, err := r.d.Installer.Link(res.Receipt)
				if err != nil {
					r.logger.Warn().Err(err).Str("formula", f.Name).Msg("Installed but not linked")
					rep.Warnings = append(rep.Warnings, err.Error())
				}
				rep.Link = link
			}
			return res.Binary, nil
		}},
		{HookTest, firstNonEmpty(dryRun(opts), skipTest(opts)), func() (string, error) {
			out, err := r.d.Tester.Test(ctx, f, smoke.Target{Prefix: rep.Install.Keg, Binary: rep.Install.Binary})
			if err != nil {
				return "", err
			}
			rep.Test = out
			return string(out.Mode), nil
		}},
	}

	var failure error
	for _, s := range steps {
		switch {
		case failure != nil:
			r.record(rep, HookResult{Hook: s.hook, Status: StatusSkipped, Detail: "previous hook failed"})
		case s.skip != "":
			r.record(rep, HookResult{Hook: s.hook, Status: StatusSkipped, Detail: s.skip})
		default:
			failure = r.runHook(ctx, rep, f, s.hook, s.fn)
		}
	}
	return rep, failure
}

// RunTest runs only the test hook against an installed keg
func (r *Runner) RunTest(ctx context.Context, f *formula.Formula, receipt *install.Receipt) (*Report, error) {
	rep := &Report{Formula: f.Name, PkgVersion: receipt.PkgVersion}

	err := r.runHook(ctx, rep, f, HookTest, func() (string, error) {
		if _, err := r.d.Resolver.Resolve(ctx, f, true); err != nil {
			return "", err
		}
		out, err := r.d.Tester.Test(ctx, f, smoke.Target{Prefix: receipt.Keg, Binary: receipt.Binary})
		if err != nil {
			return "", err
		}
		rep.Test = out
		return string(out.Mode), nil
	})
	return rep, err
}

func (r *Runner) runHook(ctx context.Context, rep *Report, f *formula.Formula, hook Hook, fn func() (string, error)) error {
	if r.d.Observer != nil {
		r.d.Observer.HookStarted(hook)
	}
	r.logger.Debug().Str("formula", f.Name).Str("hook", string(hook)).Msg("Hook started")

	start := time.Now()
	detail, err := fn()
	if err == nil {
		err = ctx.Err()
	}
	res := HookResult{Hook: hook, Status: StatusOK, Duration: time.Since(start), Detail: detail}
	if err != nil {
		if errors.GetErrorCode(err) == errors.ErrUnknown {
			err = errors.Wrapf(err, errors.ErrInternal, "%s hook of %s failed", hook, f.Name)
		}
		if fe, ok := errors.AsFormularyError(err); ok {
			fe.WithDetail("hook", string(hook)).WithDetail("formula", f.Name)
		}
		res.Status = StatusFailed
		res.Err = err
		r.logger.Error().Err(err).Str("formula", f.Name).Str("hook", string(hook)).Msg("Hook failed")
	}
	r.record(rep, res)
	return err
}

func (r *Runner) record(rep *Report, res HookResult) {
	rep.Hooks = append(rep.Hooks, res)
	if res.Status != StatusFailed {
		r.logger.Debug().
			Str("formula", rep.Formula).
			Str("hook", string(res.Hook)).
			Str("status", string(res.Status)).
			Dur("duration", res.Duration).
			Msg("Hook finished")
	}
	if r.d.Observer != nil {
		r.d.Observer.HookFinished(res)
	}
}

func (r *Runner) fetch(ctx context.Context, f *formula.Formula, opts Options) (*fetch.Result, error) {
	req := fetch.RequestFor(f, opts.Head)
	if opts.Pin && r.d.Pinner != nil && f.SourceUsing() == formula.UsingGit {
		sha, err := r.d.Pinner.Pin(ctx, req.URL, req.Ref)
		if err != nil {
			return nil, err
		}
		r.logger.Info().Str("ref", req.Ref).Str("commit", sha).Msg("Pinned ref")
		req.Ref = sha
	}

	fetcher := fetch.ForFormula(f, r.d.GitFetcher, r.d.DirFetcher)
	if fetcher == nil {
		return nil, errors.Newf(errors.ErrFetchFailed, "no fetcher for download strategy %q", f.SourceUsing())
	}
	return fetcher.Fetch(ctx, req)
}

func dryRun(opts Options) string {
	if opts.DryRun {
		return "dry run"
	}
	return ""
}

func skipTest(opts Options) string {
	if opts.SkipTest {
		return "skipped on request"
	}
	return ""
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
