package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	ferrors "github.com/arthur-debert/formulary/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the default config location at an empty temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FORMULARY_CONFIG_DIR", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "git", cfg.Fetch.Git)
	assert.Equal(t, 1, cfg.Fetch.Depth)
	assert.False(t, cfg.Fetch.Pin)
	assert.False(t, cfg.Build.KeepWorkspace)
	assert.Equal(t, time.Duration(0), cfg.Build.Timeout)
	assert.False(t, cfg.Test.Strict)
	assert.Equal(t, "auto", cfg.Output.Format)
	assert.Empty(t, cfg.Paths.Root)
}

func TestLoad_UserFileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	content := `
[paths]
root = "/opt/formulary"
formula_dirs = ["/srv/formulas", "~/formulas"]

[build]
keep_workspace = true
timeout = "10m"

[test]
strict = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "/opt/formulary", cfg.Paths.Root)
	assert.Equal(t, []string{"/srv/formulas", "~/formulas"}, cfg.Paths.FormulaDirs)
	assert.True(t, cfg.Build.KeepWorkspace)
	assert.Equal(t, 10*time.Minute, cfg.Build.Timeout)
	assert.True(t, cfg.Test.Strict)
	// untouched keys keep their defaults
	assert.Equal(t, "git", cfg.Fetch.Git)
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[fetch]\ngit = \"/usr/local/bin/git\"\n"), 0644))

	cfg, err := Load(LoadOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/git", cfg.Fetch.Git)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
	require.Error(t, err)
	assert.True(t, ferrors.IsErrorCode(err, ferrors.ErrConfigLoad))
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FORMULARY_BUILD__KEEP_WORKSPACE", "true")
	t.Setenv("FORMULARY_FETCH__DEPTH", "0")
	t.Setenv("FORMULARY_PATHS__CELLAR", "/tmp/cellar")
	t.Setenv("FORMULARY_BUILD__PATH", "/opt/go/bin,/opt/make/bin")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.True(t, cfg.Build.KeepWorkspace)
	assert.Equal(t, 0, cfg.Fetch.Depth)
	assert.Equal(t, "/tmp/cellar", cfg.Paths.Cellar)
	assert.Equal(t, []string{"/opt/go/bin", "/opt/make/bin"}, cfg.Build.Path)
}

func TestLoad_Invalid(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[output]\nformat = \"xml\"\n"), 0644))

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.True(t, ferrors.IsErrorCode(err, ferrors.ErrConfigValid))
	assert.Contains(t, err.Error(), "output.format")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "build.keep_workspace", envKey("FORMULARY_BUILD__KEEP_WORKSPACE"))
	assert.Equal(t, "fetch.github_token", envKey("FORMULARY_FETCH__GITHUB_TOKEN"))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "git", cfg.Fetch.Git)
	assert.Contains(t, DefaultsContent(), "[paths]")
}

func TestPathOptions(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = "/r"
	cfg.Paths.Cache = "/c"
	opts := cfg.PathOptions()
	assert.Equal(t, "/r", opts.Root)
	assert.Equal(t, "/c", opts.Cache)
}
