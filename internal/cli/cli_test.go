package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/formulary/pkg/testutil"
)

// helloFormula builds bin/hello from a local directory with plain sh
const helloFormula = `
name = "hello"
version = "1.0"
revision = 1

[source]
url = "src"
using = "dir"

[[depends_on]]
name = "sh"

[install]
commands = [["sh", "-c", "mkdir -p bin && printf '#!/bin/sh\\necho hello 1.0\\n' > bin/hello && chmod +x bin/hello"]]
artifact = "bin/hello"

[test]
command = ["{{bin}}"]
expect = "hello 1.0"
`

type result struct {
	code   int
	stdout string
	stderr string
}

func setup(t *testing.T) *testutil.TestEnvironment {
	t.Helper()
	env := testutil.NewTestEnvironment(t)
	t.Setenv("FORMULARY_PATHS__ROOT", env.Root)
	t.Setenv("FORMULARY_PATHS__CACHE", env.Cache)
	t.Setenv("NO_COLOR", "1")
	return env
}

func writeHello(t *testing.T, env *testutil.TestEnvironment) {
	t.Helper()
	env.WriteFormula("hello.toml", helloFormula)
	testutil.WriteTree(t, filepath.Join(env.Formulas, "src"), map[string]string{"README": "hello\n"})
}

func run(args ...string) result {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestVersion(t *testing.T) {
	setup(t)
	res := run("version")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "formulary version dev")
}

func TestNoCommand(t *testing.T) {
	setup(t)
	res := run()
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "INVALID_INPUT")
}

func TestUnknownFormat(t *testing.T) {
	setup(t)
	res := run("list", "--format", "yaml")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown format")
}

func TestInstallListTestUninstall(t *testing.T) {
	env := setup(t)
	writeHello(t, env)

	res := run("install", "hello", "--format", "text")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "install hello 1.0_1")
	assert.Contains(t, res.stdout, "test                 ok")

	binary := filepath.Join(env.Root, "Cellar", "hello", "1.0_1", "bin", "hello")
	info, err := os.Stat(binary)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	link, err := os.Readlink(filepath.Join(env.Root, "bin", "hello"))
	require.NoError(t, err)
	assert.Equal(t, binary, link)

	entries, err := os.ReadDir(filepath.Join(env.Cache, "build"))
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace and build dir are removed")

	res = run("list", "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)
	var list struct {
		Kegs []struct {
			Name       string `json:"name"`
			PkgVersion string `json:"pkgVersion"`
		} `json:"kegs"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	require.Len(t, list.Kegs, 1)
	assert.Equal(t, "hello", list.Kegs[0].Name)
	assert.Equal(t, "1.0_1", list.Kegs[0].PkgVersion)

	res = run("test", "hello", "--format", "text")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "command")

	res = run("install", "hello")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "ALREADY_INSTALLED")

	res = run("uninstall", "hello", "--format", "text")
	require.Equal(t, 0, res.code, res.stderr)
	assert.NoFileExists(t, binary)
	_, err = os.Lstat(filepath.Join(env.Root, "bin", "hello"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstall_MissingDependency(t *testing.T) {
	env := setup(t)
	env.WriteFormula("needs.toml", `
name = "needs"
version = "1.0"
[source]
url = "src"
using = "dir"
[[depends_on]]
name = "formulary-no-such-tool"
[install]
commands = [["true"]]
artifact = "x"
`)

	res := run("install", "needs", "--format", "text")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "resolve_dependencies failed")
	assert.Contains(t, res.stderr, "DEPENDENCY_MISSING")
	assert.Contains(t, res.stderr, "formulary-no-such-tool")
	assert.NoDirExists(t, filepath.Join(env.Root, "Cellar", "needs"))
}

func TestInstall_DryRunWritesJUnit(t *testing.T) {
	env := setup(t)
	writeHello(t, env)
	junit := filepath.Join(t.TempDir(), "report.xml")

	res := run("install", "hello", "--dry-run", "--junit", junit, "--format", "text")
	require.Equal(t, 0, res.code, res.stderr)
	assert.NoDirExists(t, filepath.Join(env.Root, "Cellar", "hello"))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(junit))
	cases := doc.FindElements("//testcase")
	require.Len(t, cases, 4)
	assert.Len(t, doc.FindElements("//skipped"), 3)
}

func TestFetch(t *testing.T) {
	env := setup(t)
	writeHello(t, env)
	dest := filepath.Join(t.TempDir(), "ws")

	res := run("fetch", "hello", "--dest", dest, "--format", "json")
	require.Equal(t, 0, res.code, res.stderr)

	var fetched struct {
		Digest    string `json:"digest"`
		Workspace string `json:"workspace"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &fetched))
	assert.Equal(t, dest, fetched.Workspace)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, fetched.Digest)
	assert.FileExists(t, filepath.Join(dest, "README"))
}

func TestInfo(t *testing.T) {
	setup(t)
	res := run("info", "go-poll-explain-queries", "--format", "text")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# go-poll-explain-queries master_1")
	assert.Contains(t, res.stdout, "make build")
}

func TestValidate(t *testing.T) {
	env := setup(t)
	good := env.WriteFormula("good.toml", helloFormula)
	bad := env.WriteFormula("bad.toml", "name = \"Bad\"\nversion = \"1\"\n")

	res := run("validate", good, "--format", "text")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ok      "+good+" (hello)")

	res = run("validate", good, bad, "--format", "text")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "invalid "+bad)
	assert.Contains(t, res.stderr, "FORMULA_INVALID")
}

func TestConfigAndMan(t *testing.T) {
	setup(t)
	res := run("config")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "[fetch]")

	res = run("man")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "FORMULARY")
}

func TestHelpTopics(t *testing.T) {
	setup(t)

	res := run("help", "topics")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "  config\n  formula\n  hooks\n")
	assert.Contains(t, res.stdout, "  --head\n  --pin\n")

	res = run("help", "hooks")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "resolve_dependencies")
}

func TestHookDeps_PinnerOnlyWhenPinning(t *testing.T) {
	setup(t)
	t.Setenv("GITHUB_TOKEN", "test-token")

	var out bytes.Buffer
	a, err := newApp(&globalOptions{format: "json"}, &out, &out)
	require.NoError(t, err)

	assert.Nil(t, a.hookDeps(context.Background(), false).Pinner)
	assert.NotNil(t, a.hookDeps(context.Background(), true).Pinner)
}
