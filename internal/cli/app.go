package cli

import (
	"context"
	"io"
	"os"

	"github.com/arthur-debert/formulary/pkg/builder"
	"github.com/arthur-debert/formulary/pkg/config"
	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/fetch"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/install"
	"github.com/arthur-debert/formulary/pkg/lifecycle"
	"github.com/arthur-debert/formulary/pkg/paths"
	"github.com/arthur-debert/formulary/pkg/smoke"
	"github.com/arthur-debert/formulary/pkg/ui"
)

// globalOptions are the persistent root flags
type globalOptions struct {
	verbosity  int
	configFile string
	format     string
}

// app is the per-invocation wiring of config, paths and output
type app struct {
	cfg       *config.Config
	paths     paths.Paths
	format    ui.Format
	verbosity int
	out       io.Writer
	errOut    io.Writer
}

func newApp(g *globalOptions, out, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: g.configFile})
	if err != nil {
		return nil, err
	}

	formatName := cfg.Output.Format
	if g.format != "" {
		formatName = g.format
	}
	format, err := ui.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	p, err := paths.New(cfg.PathOptions())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		paths:     p,
		format:    format,
		verbosity: g.verbosity,
		out:       out,
		errOut:    errOut,
	}, nil
}

func (a *app) renderer() (ui.Renderer, error) {
	return ui.NewRenderer(a.format, a.out)
}

func (a *app) finder() *formula.Finder {
	return formula.NewFinder(a.paths.FormulaDirs())
}

func (a *app) gitFetcher() *fetch.GitFetcher {
	return fetch.NewGitFetcher(fetch.GitOptions{
		Git:      a.cfg.Fetch.Git,
		Depth:    a.cfg.Fetch.Depth,
		BuildDir: a.paths.BuildDir(),
		CacheDir: a.paths.GitCacheDir(),
	})
}

func (a *app) pinner(ctx context.Context, git *fetch.GitFetcher) fetch.RefPinner {
	token := fetch.ResolveToken(ctx, a.cfg.Fetch.GitHubToken)
	return fetch.NewGitHubPinner(ctx, token, fetch.NewLsRemotePinner(git))
}

func (a *app) installer() *install.Installer {
	opts := builder.Options{
		Path:    a.cfg.Build.Path,
		Timeout: a.cfg.Build.Timeout,
	}
	// -v streams build output; it is always logged at debug level
	if a.verbosity > 0 {
		opts.Output = a.errOut
	}
	return install.New(a.paths, builder.NewCommandBuilder(opts))
}

func (a *app) runner(ctx context.Context, pin bool) *lifecycle.Runner {
	return lifecycle.NewRunner(a.hookDeps(ctx, pin))
}

// hookDeps wires the hook capabilities. The pinner, and with it the token
// lookup, is only built when the run pins refs.
func (a *app) hookDeps(ctx context.Context, pin bool) lifecycle.Deps {
	git := a.gitFetcher()
	d := lifecycle.Deps{
		Resolver:   deps.New(deps.Options{ExtraPath: a.cfg.Build.Path}),
		GitFetcher: git,
		DirFetcher: fetch.NewDirFetcher(a.paths.BuildDir()),
		Installer:  a.installer(),
		Tester:     smoke.New(a.cfg.Test.Strict),
	}
	if pin {
		d.Pinner = a.pinner(ctx, git)
	}
	if a.format != ui.FormatJSON {
		d.Observer = ui.NewProgress(a.errOut, a.format == ui.FormatText || !a.styledErrOut())
	}
	return d
}

func (a *app) styledErrOut() bool {
	f, ok := a.errOut.(*os.File)
	return ok && ui.DetectFormat(f) == ui.FormatTerminal
}
