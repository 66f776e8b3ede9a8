package formula

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/formulary/pkg/errors"
)

//go:embed bundled/*.toml
var bundled embed.FS

const bundledPrefix = "bundled:"

// Finder resolves formula references to descriptors
type Finder struct {
	dirs []string
}

// NewFinder searches dirs in order before the bundled formulas
func NewFinder(dirs []string) *Finder {
	return &Finder{dirs: dirs}
}

// Find accepts either a path to a formula file or a formula name.
// Names are looked up as <dir>/<name><ext> in each formula dir, then among
// the bundled formulas.
func (fd *Finder) Find(ref string) (*Formula, error) {
	if looksLikePath(ref) {
		return LoadFile(ref)
	}

	for _, dir := range fd.dirs {
		for _, ext := range Extensions {
			candidate := filepath.Join(dir, ref+ext)
			if _, err := os.Stat(candidate); err == nil {
				return LoadFile(candidate)
			}
		}
	}

	data, err := bundled.ReadFile(path.Join("bundled", ref+".toml"))
	if err == nil {
		return Parse(data, FormatTOML, bundledPrefix+ref)
	}

	return nil, errors.Newf(errors.ErrFormulaNotFound, "no formula named %q", ref).
		WithDetail("searched", fd.dirs)
}

// Names lists every formula name reachable by Find, sorted and deduplicated
func (fd *Finder) Names() ([]string, error) {
	seen := make(map[string]bool)
	for _, dir := range fd.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read formula dir %s", dir)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if name, ok := trimFormulaExt(e.Name()); ok {
				seen[name] = true
			}
		}
	}

	entries, err := fs.ReadDir(bundled, "bundled")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to read bundled formulas")
	}
	for _, e := range entries {
		if name, ok := trimFormulaExt(e.Name()); ok {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// IsBundled reports whether f came from the embedded formulas
func (f *Formula) IsBundled() bool {
	return strings.HasPrefix(f.File, bundledPrefix)
}

func trimFormulaExt(name string) (string, bool) {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

func looksLikePath(ref string) bool {
	if strings.ContainsAny(ref, "/\\") {
		return true
	}
	_, ok := trimFormulaExt(ref)
	return ok
}
