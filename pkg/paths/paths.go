package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/formulary/pkg/errors"
)

const (
	// EnvConfigDir overrides the XDG config directory for formulary
	EnvConfigDir = "FORMULARY_CONFIG_DIR"

	// AppDirName is the directory name used under each XDG base dir
	AppDirName = "formulary"

	// CellarDirName holds one rack per formula
	CellarDirName = "Cellar"

	// BinDirName holds linked binaries, both under the root and in kegs
	BinDirName = "bin"

	// BuildDirName is the scratch area under the cache dir
	BuildDirName = "build"

	// GitCacheDirName holds git caches under the cache dir
	GitCacheDirName = "git"

	// FormulaDirName is the user formula directory under the config dir
	FormulaDirName = "formulas"

	// ReceiptFileName is written at the top of every keg
	ReceiptFileName = "INSTALL_RECEIPT.toml"

	// ConfigFileName is the user configuration file
	ConfigFileName = "config.toml"
)

// Paths provides centralized path management for formulary
type Paths interface {
	Root() string
	Cellar() string
	BinDir() string
	CacheDir() string
	BuildDir() string
	GitCacheDir() string
	FormulaDirs() []string
	RackPath(name string) string
	KegPath(name, pkgVersion string) string
	KegBinDir(name, pkgVersion string) string
	LinkPath(binName string) string
	ReceiptPath(name, pkgVersion string) string
}

// Options configures New. Empty fields fall back to XDG defaults.
type Options struct {
	Root        string
	Cellar      string
	Cache       string
	FormulaDirs []string
}

type paths struct {
	root        string
	cellar      string
	cache       string
	formulaDirs []string
}

// New creates a Paths instance from the given options.
func New(opts Options) (Paths, error) {
	p := &paths{}

	root := opts.Root
	if root == "" {
		root = filepath.Join(xdg.DataHome, AppDirName)
	}
	abs, err := filepath.Abs(ExpandHome(root))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigValid, "failed to resolve install root %q", root)
	}
	p.root = abs

	if opts.Cellar != "" {
		cellar, err := filepath.Abs(ExpandHome(opts.Cellar))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "failed to resolve cellar %q", opts.Cellar)
		}
		p.cellar = cellar
	} else {
		p.cellar = filepath.Join(p.root, CellarDirName)
	}

	cache := opts.Cache
	if cache == "" {
		cache = filepath.Join(xdg.CacheHome, AppDirName)
	}
	abs, err = filepath.Abs(ExpandHome(cache))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigValid, "failed to resolve cache dir %q", cache)
	}
	p.cache = abs

	if len(opts.FormulaDirs) > 0 {
		for _, d := range opts.FormulaDirs {
			p.formulaDirs = append(p.formulaDirs, ExpandHome(d))
		}
	} else {
		p.formulaDirs = []string{filepath.Join(ConfigDir(), FormulaDirName)}
	}

	return p, nil
}

// ConfigDir returns the formulary config directory, honoring FORMULARY_CONFIG_DIR.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return ExpandHome(dir)
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, AppDirName)
	}
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// ConfigFilePath returns the default user config file path.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}

func (p *paths) Root() string          { return p.root }
func (p *paths) Cellar() string        { return p.cellar }
func (p *paths) BinDir() string        { return filepath.Join(p.root, BinDirName) }
func (p *paths) CacheDir() string      { return p.cache }
func (p *paths) BuildDir() string      { return filepath.Join(p.cache, BuildDirName) }
func (p *paths) GitCacheDir() string   { return filepath.Join(p.cache, GitCacheDirName) }
func (p *paths) FormulaDirs() []string { return append([]string(nil), p.formulaDirs...) }

func (p *paths) RackPath(name string) string {
	return filepath.Join(p.cellar, name)
}

func (p *paths) KegPath(name, pkgVersion string) string {
	return filepath.Join(p.cellar, name, pkgVersion)
}

func (p *paths) KegBinDir(name, pkgVersion string) string {
	return filepath.Join(p.KegPath(name, pkgVersion), BinDirName)
}

func (p *paths) LinkPath(binName string) string {
	return filepath.Join(p.BinDir(), binName)
}

func (p *paths) ReceiptPath(name, pkgVersion string) string {
	return filepath.Join(p.KegPath(name, pkgVersion), ReceiptFileName)
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
