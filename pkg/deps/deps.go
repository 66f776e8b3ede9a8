// Package deps implements the resolve_dependencies hook: every build-time
// tool a formula names must be on the build PATH before anything is
// fetched or built.
package deps

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// LookupFunc finds an executable by name and returns its absolute path
type LookupFunc func(name string) (string, error)

// Resolved is the outcome for one dependency
type Resolved struct {
	Name  string
	Kind  formula.DependencyKind
	Path  string
	Found bool
	// Checked is false for dependencies that are not looked up at build
	// time (run deps, test deps when the test hook is skipped).
	Checked bool
}

// Options configures a Resolver
type Options struct {
	// Lookup replaces exec.LookPath, mainly for tests.
	Lookup LookupFunc
	// ExtraPath is searched before $PATH.
	ExtraPath []string
}

// Resolver checks formula dependencies against the build PATH
type Resolver struct {
	lookup    LookupFunc
	extraPath []string
	logger    zerolog.Logger
}

// New creates a Resolver
func New(opts Options) *Resolver {
	r := &Resolver{
		lookup:    opts.Lookup,
		extraPath: opts.ExtraPath,
		logger:    logging.GetLogger("deps"),
	}
	if r.lookup == nil {
		r.lookup = r.lookPath
	}
	return r
}

// Resolve checks dependencies in declaration order. Build dependencies,
// and test dependencies when includeTest is set, must resolve; the first
// one that does not aborts with ErrDependencyMissing. Optional ones are
// only logged.
func (r *Resolver) Resolve(ctx context.Context, f *formula.Formula, includeTest bool) ([]Resolved, error) {
	results := make([]Resolved, 0, len(f.Dependencies))

	for _, dep := range f.Dependencies {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		kind := dep.KindOf()
		res := Resolved{Name: dep.Name, Kind: kind}

		required := kind == formula.KindBuild || (kind == formula.KindTest && includeTest)
		if !required && kind != formula.KindOptional {
			r.logger.Debug().
				Str("formula", f.Name).
				Str("dependency", dep.Name).
				Str("kind", string(kind)).
				Msg("Dependency not checked at build time")
			results = append(results, res)
			continue
		}

		res.Checked = true
		path, err := r.lookup(dep.Name)
		if err != nil {
			if !required {
				r.logger.Info().
					Str("formula", f.Name).
					Str("dependency", dep.Name).
					Msg("Optional dependency not found")
				results = append(results, res)
				continue
			}
			return results, errors.Wrapf(err, errors.ErrDependencyMissing,
				"%s requires %s (%s) but it was not found on PATH", f.Name, dep.Name, kind).
				WithDetail("formula", f.Name).
				WithDetail("dependency", dep.Name).
				WithDetail("kind", string(kind))
		}

		res.Path = path
		res.Found = true
		results = append(results, res)

		r.logger.Debug().
			Str("formula", f.Name).
			Str("dependency", dep.Name).
			Str("path", path).
			Msg("Dependency resolved")
	}

	return results, nil
}

func (r *Resolver) lookPath(name string) (string, error) {
	return LookPath(name, r.extraPath)
}

// LookPath finds an executable in extra, then in $PATH. Names containing a
// path separator are only made absolute.
func LookPath(name string, extra []string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if !isExecutable(name) {
			return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
		}
		return filepath.Abs(name)
	}
	for _, dir := range extra {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

// SearchPath returns the PATH value for child processes: extra dirs first
func SearchPath(extra []string) string {
	list := append([]string(nil), extra...)
	if p := os.Getenv("PATH"); p != "" {
		list = append(list, p)
	}
	return strings.Join(list, string(os.PathListSeparator))
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
