package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithExplicitRoot(t *testing.T) {
	root := t.TempDir()
	cache := t.TempDir()

	p, err := New(Options{Root: root, Cache: cache, FormulaDirs: []string{"/etc/formulary"}})
	require.NoError(t, err)

	assert.Equal(t, root, p.Root())
	assert.Equal(t, filepath.Join(root, "Cellar"), p.Cellar())
	assert.Equal(t, filepath.Join(root, "bin"), p.BinDir())
	assert.Equal(t, cache, p.CacheDir())
	assert.Equal(t, filepath.Join(cache, "build"), p.BuildDir())
	assert.Equal(t, filepath.Join(cache, "git"), p.GitCacheDir())
	assert.Equal(t, []string{"/etc/formulary"}, p.FormulaDirs())
}

func TestKegLayout(t *testing.T) {
	root := t.TempDir()
	p, err := New(Options{Root: root, Cache: t.TempDir()})
	require.NoError(t, err)

	keg := filepath.Join(root, "Cellar", "go-poll-explain-queries", "master_1")
	assert.Equal(t, filepath.Join(root, "Cellar", "go-poll-explain-queries"), p.RackPath("go-poll-explain-queries"))
	assert.Equal(t, keg, p.KegPath("go-poll-explain-queries", "master_1"))
	assert.Equal(t, filepath.Join(keg, "bin"), p.KegBinDir("go-poll-explain-queries", "master_1"))
	assert.Equal(t, filepath.Join(keg, "INSTALL_RECEIPT.toml"), p.ReceiptPath("go-poll-explain-queries", "master_1"))
	assert.Equal(t, filepath.Join(root, "bin", "example1"), p.LinkPath("example1"))
}

func TestNew_ExplicitCellar(t *testing.T) {
	cellar := t.TempDir()
	p, err := New(Options{Root: t.TempDir(), Cellar: cellar, Cache: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, cellar, p.Cellar())
}

func TestConfigDir(t *testing.T) {
	t.Run("explicit override", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/opt/formulary/etc")
		assert.Equal(t, "/opt/formulary/etc", ConfigDir())
		assert.Equal(t, filepath.Join("/opt/formulary/etc", "config.toml"), ConfigFilePath())
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		t.Setenv("XDG_CONFIG_HOME", "/home/test/.config")
		assert.Equal(t, filepath.Join("/home/test/.config", "formulary"), ConfigDir())
	})
}

func TestFormulaDirsDefault(t *testing.T) {
	t.Setenv(EnvConfigDir, "/cfg")
	p, err := New(Options{Root: t.TempDir(), Cache: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("/cfg", "formulas")}, p.FormulaDirs())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "formulas"), ExpandHome("~/formulas"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
}
