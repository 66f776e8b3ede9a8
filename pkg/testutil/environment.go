package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/formulary/pkg/paths"
)

// TestEnvironment is an isolated formulary installation
type TestEnvironment struct {
	Root      string
	Cache     string
	ConfigDir string
	Formulas  string
	Paths     paths.Paths

	t *testing.T
}

// NewTestEnvironment creates the directories and points FORMULARY_CONFIG_DIR
// and the XDG variables at them.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	base := t.TempDir()
	env := &TestEnvironment{
		Root:      filepath.Join(base, "root"),
		Cache:     filepath.Join(base, "cache"),
		ConfigDir: filepath.Join(base, "config"),
		t:         t,
	}
	env.Formulas = filepath.Join(env.ConfigDir, paths.FormulaDirName)

	for _, dir := range []string{env.Root, env.Cache, env.Formulas} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	t.Setenv(paths.EnvConfigDir, env.ConfigDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "xdg-config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "xdg-cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "xdg-data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "xdg-state"))

	p, err := paths.New(paths.Options{
		Root:        env.Root,
		Cache:       env.Cache,
		FormulaDirs: []string{env.Formulas},
	})
	if err != nil {
		t.Fatalf("Failed to create paths: %v", err)
	}
	env.Paths = p
	return env
}

// WriteFormula writes a formula file into the formula dir and returns its path
func (env *TestEnvironment) WriteFormula(fileName, content string) string {
	env.t.Helper()
	path := filepath.Join(env.Formulas, fileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write formula %s: %v", path, err)
	}
	return path
}

// WriteTree creates files under root; keys are slash-separated paths
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}

// ListFiles returns every regular file under root, slash-separated and
// relative. A missing root yields nil.
func ListFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", root, err)
	}
	return files
}
