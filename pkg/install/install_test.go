package install

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/formulary/pkg/builder"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/testutil"
)

func exampleFormula() *formula.Formula {
	return &formula.Formula{
		Name:     "go-poll-explain-queries",
		Version:  "master",
		Revision: 1,
		Source:   formula.Source{URL: "https://github.com/dathan/go-poll-explain-queries.git"},
		Install: formula.InstallSpec{
			Env:      map[string]string{"GOPATH": "{{buildpath}}"},
			StageDir: "src/github.com/dathan/go-poll-explain-queries",
			Commands: [][]string{{"make", "build"}, {"ls", "-ltarh"}},
			Artifact: "bin/example1",
			BinName:  "example1",
		},
	}
}

func workspace(t *testing.T, env *testutil.TestEnvironment) Source {
	t.Helper()
	ws := filepath.Join(env.Paths.BuildDir(), "ws")
	testutil.WriteTree(t, ws, map[string]string{
		"Makefile":    "build:\n\tgo build -o bin/example1 ./cmd/example1\n",
		"cmd/main.go": "package main\n",
	})
	return Source{Workspace: ws, URL: "https://github.com/dathan/go-poll-explain-queries.git", Ref: "master", Commit: "abc123", Digest: "sha256:00"}
}

func TestInstall_PlacesOneExecutable(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	fb := &testutil.FakeBuilder{Content: "binary"}
	inst := New(env.Paths, fb)
	f := exampleFormula()

	res, err := inst.Install(context.Background(), f, workspace(t, env), Options{})
	require.NoError(t, err)

	keg := env.Paths.KegPath(f.Name, "master_1")
	assert.Equal(t, keg, res.Keg)
	assert.Equal(t, filepath.Join(keg, "bin", "example1"), res.Binary)

	assert.Equal(t, []string{"INSTALL_RECEIPT.toml", "bin/example1"}, testutil.ListFiles(t, keg))
	info, err := os.Stat(res.Binary)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	content, _ := os.ReadFile(res.Binary)
	assert.Equal(t, "binary", string(content))

	// the build ran in the staged import path with an isolated GOPATH
	calls := fb.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, filepath.Join(calls[0].BuildPath, "src", "github.com", "dathan", "go-poll-explain-queries"), calls[0].StagePath)
	assert.Equal(t, []string{"GOPATH=" + calls[0].BuildPath}, calls[0].Env)
	assert.Equal(t, keg, calls[0].Prefix)

	// build path and workspace are gone
	assert.NoDirExists(t, res.BuildPath)
	assert.NoDirExists(t, filepath.Join(env.Paths.BuildDir(), "ws"))

	r, err := ReadReceipt(env.Paths.ReceiptPath(f.Name, "master_1"))
	require.NoError(t, err)
	assert.Equal(t, "master_1", r.PkgVersion)
	assert.Equal(t, "abc123", r.Commit)
	assert.Equal(t, res.Binary, r.Binary)
	assert.Equal(t, "sha256:9a3a45d01531a20e89ac6ae10b0b0beb0492acd7216a368aa062d1a5fecaf9cd", r.Checksum)
	assert.NotEmpty(t, r.ID)
}

func TestInstall_BuildFailureLeavesNothing(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	inst := New(env.Paths, &testutil.FakeBuilder{ExitCode: 1})
	f := exampleFormula()

	_, err := inst.Install(context.Background(), f, workspace(t, env), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuildFailed))

	assert.NoDirExists(t, env.Paths.KegPath(f.Name, "master_1"))
	assert.Empty(t, testutil.ListFiles(t, env.Paths.Cellar()))
	assert.Empty(t, testutil.ListFiles(t, env.Paths.BuildDir()))
}

func TestInstall_MissingArtifact(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	inst := New(env.Paths, &testutil.FakeBuilder{SkipArtifact: true})
	f := exampleFormula()

	_, err := inst.Install(context.Background(), f, workspace(t, env), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrArtifactMissing))
	assert.NoDirExists(t, env.Paths.RackPath(f.Name))
}

func TestInstall_AlreadyInstalled(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	inst := New(env.Paths, &testutil.FakeBuilder{Content: "v1"})
	f := exampleFormula()

	_, err := inst.Install(context.Background(), f, workspace(t, env), Options{})
	require.NoError(t, err)

	_, err = inst.Install(context.Background(), f, workspace(t, env), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyInstalled))
}

func TestInstall_ForceReplacesOnlyAfterSuccess(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	f := exampleFormula()
	bin := filepath.Join(env.Paths.KegBinDir(f.Name, "master_1"), "example1")

	_, err := New(env.Paths, &testutil.FakeBuilder{Content: "v1"}).Install(context.Background(), f, workspace(t, env), Options{})
	require.NoError(t, err)

	_, err = New(env.Paths, &testutil.FakeBuilder{ExitCode: 2}).Install(context.Background(), f, workspace(t, env), Options{Force: true})
	require.Error(t, err)
	content, _ := os.ReadFile(bin)
	assert.Equal(t, "v1", string(content))

	_, err = New(env.Paths, &testutil.FakeBuilder{Content: "v2"}).Install(context.Background(), f, workspace(t, env), Options{Force: true})
	require.NoError(t, err)
	content, _ = os.ReadFile(bin)
	assert.Equal(t, "v2", string(content))

	entries, err := os.ReadDir(env.Paths.RackPath(f.Name))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "master_1", entries[0].Name())
}

func TestInstall_KeepBuild(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	res, err := New(env.Paths, &testutil.FakeBuilder{}).Install(context.Background(), exampleFormula(), workspace(t, env), Options{KeepBuild: true})
	require.NoError(t, err)
	assert.DirExists(t, res.BuildPath)
	assert.FileExists(t, filepath.Join(res.BuildPath, "src", "github.com", "dathan", "go-poll-explain-queries", "Makefile"))
}

func TestInstall_MissingWorkspace(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	_, err := New(env.Paths, &testutil.FakeBuilder{}).Install(context.Background(), exampleFormula(), Source{Workspace: filepath.Join(env.Cache, "gone")}, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstallFailed))
}

// The end-to-end scenario: make build produces bin/example1 through a real
// Makefile when make and sh are available.
func TestInstall_WithCommandBuilder(t *testing.T) {
	for _, tool := range []string{"make", "sh", "ls"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}

	tests := []struct {
		name     string
		makefile string
		wantErr  errors.ErrorCode
	}{
		{
			name:     "build succeeds",
			makefile: "build:\n\tmkdir -p bin\n\tprintf '#!/bin/sh\\necho example1\\n' > bin/example1\n",
		},
		{
			name:     "build exits 1",
			makefile: "build:\n\tmkdir -p bin\n\ttouch bin/example1\n\texit 1\n",
			wantErr:  errors.ErrBuildFailed,
		},
		{
			name:     "build forgets the artifact",
			makefile: "build:\n\t@echo nothing to do\n",
			wantErr:  errors.ErrArtifactMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnvironment(t)
			ws := filepath.Join(env.Paths.BuildDir(), "ws")
			testutil.WriteTree(t, ws, map[string]string{"Makefile": tt.makefile})

			f := exampleFormula()
			inst := New(env.Paths, builder.NewCommandBuilder(builder.Options{}))
			res, err := inst.Install(context.Background(), f, Source{Workspace: ws}, Options{})

			binPath := filepath.Join(env.Paths.KegBinDir(f.Name, "master_1"), "example1")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, tt.wantErr), "got %v", err)
				assert.NoFileExists(t, binPath)
				assert.NoDirExists(t, env.Paths.KegPath(f.Name, "master_1"))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, binPath, res.Binary)
			out, err := exec.Command(res.Binary).Output()
			require.NoError(t, err)
			assert.Equal(t, "example1\n", string(out))
		})
	}
}

func TestLinkUnlink(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	inst := New(env.Paths, &testutil.FakeBuilder{})
	res, err := inst.Install(context.Background(), exampleFormula(), workspace(t, env), Options{})
	require.NoError(t, err)

	link, err := inst.Link(res.Receipt)
	require.NoError(t, err)
	assert.Equal(t, env.Paths.LinkPath("example1"), link)
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, res.Binary, target)

	// relinking the same formula is fine
	_, err = inst.Link(res.Receipt)
	require.NoError(t, err)

	require.NoError(t, inst.Unlink(res.Receipt))
	_, err = os.Lstat(link)
	assert.True(t, os.IsNotExist(err))
}

func TestLink_Conflicts(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	inst := New(env.Paths, &testutil.FakeBuilder{})
	res, err := inst.Install(context.Background(), exampleFormula(), workspace(t, env), Options{})
	require.NoError(t, err)

	link := env.Paths.LinkPath("example1")
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.WriteFile(link, []byte("user file"), 0755))

	_, err = inst.Link(res.Receipt)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))

	require.NoError(t, os.Remove(link))
	require.NoError(t, os.Symlink("/usr/bin/true", link))
	_, err = inst.Link(res.Receipt)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))

	// foreign links are left alone
	require.NoError(t, inst.Unlink(res.Receipt))
	target, _ := os.Readlink(link)
	assert.Equal(t, "/usr/bin/true", target)
}

func TestListInstalledUninstall(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	inst := New(env.Paths, &testutil.FakeBuilder{})
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	inst.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	list, err := inst.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	f := exampleFormula()
	_, err = inst.Install(context.Background(), f, workspace(t, env), Options{})
	require.NoError(t, err)

	f2 := exampleFormula()
	f2.Revision = 2
	res2, err := inst.Install(context.Background(), f2, workspace(t, env), Options{})
	require.NoError(t, err)
	_, err = inst.Link(res2.Receipt)
	require.NoError(t, err)

	other := exampleFormula()
	other.Name = "another-tool"
	other.Install.BinName = "another"
	_, err = inst.Install(context.Background(), other, workspace(t, env), Options{})
	require.NoError(t, err)

	list, err = inst.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "another-tool", list[0].Name)
	assert.Equal(t, "master_1", list[1].PkgVersion)
	assert.Equal(t, "master_2", list[2].PkgVersion)

	latest, err := inst.Installed(f.Name)
	require.NoError(t, err)
	assert.Equal(t, "master_2", latest.PkgVersion)
	assert.Equal(t, env.Paths.KegPath(f.Name, "master_2"), latest.Keg)

	removed, err := inst.Uninstall(f.Name)
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.NoDirExists(t, env.Paths.RackPath(f.Name))
	_, err = os.Lstat(env.Paths.LinkPath("example1"))
	assert.True(t, os.IsNotExist(err))

	_, err = inst.Uninstall(f.Name)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotInstalled))
	_, err = inst.Installed(f.Name)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotInstalled))
}

func TestInstall_StageFailureRemovesBuildPath(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	buildDir := env.Paths.BuildDir()
	testutil.WriteTree(t, buildDir, map[string]string{"marker": "x"})

	// a directory cannot be renamed into its own subtree
	inst := New(env.Paths, &testutil.FakeBuilder{Content: "binary"})
	_, err := inst.Install(context.Background(), exampleFormula(), Source{Workspace: buildDir}, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInstallFailed))

	entries, err := os.ReadDir(buildDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"marker"}, names)
}

func TestInstall_RejectsVersionOutsideRack(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	other := filepath.Join(env.Paths.KegBinDir("other", "1.0"), "other")
	testutil.WriteTree(t, filepath.Dir(other), map[string]string{"other": "#!/bin/sh\n"})

	f := exampleFormula()
	f.Version = ".."
	f.Revision = 0

	inst := New(env.Paths, &testutil.FakeBuilder{Content: "binary"})
	_, err := inst.Install(context.Background(), f, workspace(t, env), Options{Force: true})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFormulaInvalid))

	_, err = os.Stat(other)
	assert.NoError(t, err)
}
