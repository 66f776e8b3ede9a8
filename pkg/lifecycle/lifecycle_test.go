package lifecycle

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/fetch"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/install"
	"github.com/arthur-debert/formulary/pkg/smoke"
	"github.com/arthur-debert/formulary/pkg/testutil"
)

type recorder struct {
	started  []Hook
	finished []HookResult
}

func (r *recorder) HookStarted(h Hook)          { r.started = append(r.started, h) }
func (r *recorder) HookFinished(res HookResult) { r.finished = append(r.finished, res) }

type fixture struct {
	env     *testutil.TestEnvironment
	fetcher *testutil.FakeFetcher
	builder *testutil.FakeBuilder
	obs     *recorder
	runner  *Runner
}

func newFixture(t *testing.T, tools map[string]string) *fixture {
	env := testutil.NewTestEnvironment(t)
	fx := &fixture{
		env: env,
		fetcher: &testutil.FakeFetcher{
			BuildDir: env.Paths.BuildDir(),
			Files:    map[string]string{"Makefile": "build:\n", "main.go": "package main\n"},
			Commit:   "0123456789abcdef0123456789abcdef01234567",
		},
		builder: &testutil.FakeBuilder{},
		obs:     &recorder{},
	}
	fx.runner = NewRunner(Deps{
		Resolver:   deps.New(deps.Options{Lookup: testutil.Lookup(tools)}),
		GitFetcher: fx.fetcher,
		DirFetcher: fetch.NewDirFetcher(env.Paths.BuildDir()),
		Installer:  install.New(env.Paths, fx.builder),
		Tester:     smoke.New(false),
		Observer:   fx.obs,
	})
	return fx
}

func bundled(t *testing.T) *formula.Formula {
	f, err := formula.NewFinder(nil).Find("go-poll-explain-queries")
	require.NoError(t, err)
	return f
}

var makeAndGo = map[string]string{"make": "/usr/bin/make", "go": "/usr/local/go/bin/go"}

func statuses(rep *Report) map[Hook]Status {
	out := make(map[Hook]Status)
	for _, h := range rep.Hooks {
		out[h.Hook] = h.Status
	}
	return out
}

func TestRun_Success(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	f := bundled(t)

	rep, err := fx.runner.Run(context.Background(), f, Options{Link: true})
	require.NoError(t, err)

	require.Len(t, rep.Hooks, 4)
	for i, h := range rep.Hooks {
		assert.Equal(t, Hooks[i], h.Hook)
		assert.Equal(t, StatusOK, h.Status, h.Hook)
	}
	assert.Equal(t, Hooks, fx.obs.started)
	assert.Len(t, fx.obs.finished, 4)

	bin := filepath.Join(fx.env.Paths.KegBinDir(f.Name, "master_1"), "example1")
	assert.Equal(t, bin, rep.Install.Binary)
	info, err := os.Stat(bin)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0100)

	assert.Equal(t, smoke.ModeAlwaysPass, rep.Test.Mode)
	assert.Equal(t, fx.env.Paths.LinkPath("example1"), rep.Link)
	assert.Equal(t, "master", fx.fetcher.Requests()[0].Ref)
	assert.Equal(t, "/usr/bin/make", rep.Dependencies[0].Path)
	assert.Nil(t, rep.Failed())

	// workspace and build path are cleaned up
	assert.Empty(t, testutil.ListFiles(t, fx.env.Paths.BuildDir()))
}

func TestRun_MissingDependencyStopsBeforeFetch(t *testing.T) {
	fx := newFixture(t, map[string]string{"make": "/usr/bin/make"})

	rep, err := fx.runner.Run(context.Background(), bundled(t), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyMissing))
	assert.Equal(t, "resolve_dependencies", errors.GetErrorDetails(err)["hook"])

	assert.Empty(t, fx.fetcher.Requests())
	assert.Empty(t, fx.builder.Calls())
	assert.Equal(t, map[Hook]Status{
		HookDependencies: StatusFailed,
		HookFetch:        StatusSkipped,
		HookInstall:      StatusSkipped,
		HookTest:         StatusSkipped,
	}, statuses(rep))
	assert.Equal(t, HookDependencies, rep.Failed().Hook)
}

func TestRun_BuildFailure(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	fx.builder.ExitCode = 1
	f := bundled(t)

	rep, err := fx.runner.Run(context.Background(), f, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildFailed))
	assert.Equal(t, StatusFailed, statuses(rep)[HookInstall])
	assert.Equal(t, StatusSkipped, statuses(rep)[HookTest])

	assert.NoFileExists(t, filepath.Join(fx.env.Paths.KegBinDir(f.Name, "master_1"), "example1"))
	assert.Empty(t, testutil.ListFiles(t, fx.env.Paths.Cellar()))
	assert.Empty(t, testutil.ListFiles(t, fx.env.Paths.BuildDir()))
}

func TestRun_FetchFailureLeavesNoWorkspace(t *testing.T) {
	fx := newFixture(t, nil)
	f := &formula.Formula{
		Name:    "local",
		Version: "dev",
		Source:  formula.Source{URL: filepath.Join(fx.env.Root, "missing-src"), Using: formula.UsingDir},
		Install: formula.InstallSpec{Commands: [][]string{{"make"}}, Artifact: "local"},
	}

	rep, err := fx.runner.Run(context.Background(), f, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetchFailed))
	assert.Equal(t, StatusFailed, statuses(rep)[HookFetch])
	assert.Empty(t, testutil.ListFiles(t, fx.env.Paths.BuildDir()))
	assert.Empty(t, fx.builder.Calls())
}

func TestRun_FetcherError(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	fx.fetcher.Err = stderrors.New("could not resolve host")

	_, err := fx.runner.Run(context.Background(), bundled(t), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFetchFailed))
	assert.Empty(t, fx.builder.Calls())
}

func TestRun_DryRun(t *testing.T) {
	fx := newFixture(t, makeAndGo)

	rep, err := fx.runner.Run(context.Background(), bundled(t), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, map[Hook]Status{
		HookDependencies: StatusOK,
		HookFetch:        StatusSkipped,
		HookInstall:      StatusSkipped,
		HookTest:         StatusSkipped,
	}, statuses(rep))
	assert.Empty(t, fx.fetcher.Requests())
}

func TestRun_SkipTestAndHead(t *testing.T) {
	fx := newFixture(t, makeAndGo)

	rep, err := fx.runner.Run(context.Background(), bundled(t), Options{SkipTest: true, Head: true})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, statuses(rep)[HookTest])
	assert.Nil(t, rep.Test)
	assert.Equal(t, formula.HeadRef, fx.fetcher.Requests()[0].Ref)
	assert.True(t, rep.Install.Receipt.Head)
}

type fixedPinner struct{ sha string }

func (p fixedPinner) Pin(ctx context.Context, url, ref string) (string, error) { return p.sha, nil }

func TestRun_Pin(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	fx.runner.d.Pinner = fixedPinner{sha: "feedfacefeedfacefeedfacefeedfacefeedface"}

	rep, err := fx.runner.Run(context.Background(), bundled(t), Options{Pin: true})
	require.NoError(t, err)
	assert.Equal(t, "feedfacefeedfacefeedfacefeedfacefeedface", fx.fetcher.Requests()[0].Ref)
	assert.Equal(t, "feedfacefeedfacefeedfacefeedfacefeedface", rep.Install.Receipt.Ref)
}

func TestRun_TestDependencyCheckedOnlyWhenTesting(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	f := bundled(t)
	f.Dependencies = append(f.Dependencies, formula.Dependency{Name: "bats", Kind: formula.KindTest})

	_, err := fx.runner.Run(context.Background(), f, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDependencyMissing))

	_, err = fx.runner.Run(context.Background(), f, Options{SkipTest: true})
	require.NoError(t, err)
}

func TestRun_AlreadyInstalled(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	f := bundled(t)

	_, err := fx.runner.Run(context.Background(), f, Options{})
	require.NoError(t, err)

	_, err = fx.runner.Run(context.Background(), f, Options{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyInstalled))
	assert.Empty(t, testutil.ListFiles(t, fx.env.Paths.BuildDir()), "unused workspace is removed")

	_, err = fx.runner.Run(context.Background(), f, Options{Force: true})
	assert.NoError(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := fx.runner.Run(ctx, bundled(t), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, statuses(rep)[HookDependencies])
}

func TestRunTest(t *testing.T) {
	fx := newFixture(t, makeAndGo)
	f := bundled(t)

	rep, err := fx.runner.Run(context.Background(), f, Options{})
	require.NoError(t, err)

	trep, err := fx.runner.RunTest(context.Background(), f, rep.Install.Receipt)
	require.NoError(t, err)
	require.Len(t, trep.Hooks, 1)
	assert.Equal(t, HookTest, trep.Hooks[0].Hook)
	assert.Equal(t, StatusOK, trep.Hooks[0].Status)
	assert.Equal(t, smoke.ModeAlwaysPass, trep.Test.Mode)
}
