package formula

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DependencyKind says when a dependency is needed
type DependencyKind string

const (
	// KindBuild is required on PATH before the install hook runs
	KindBuild DependencyKind = "build"
	// KindRun is needed by the installed binary, not checked at build time
	KindRun DependencyKind = "run"
	// KindTest is required only when the test hook runs
	KindTest DependencyKind = "test"
	// KindOptional is logged when missing, never fatal
	KindOptional DependencyKind = "optional"
)

// Source strategies
const (
	UsingGit = "git"
	UsingDir = "dir"
)

// HeadRef is the ref fetched for head installs
const HeadRef = "HEAD"

// Formula is a declarative recipe for building and installing one binary
type Formula struct {
	Name         string       `toml:"name" yaml:"name"`
	Desc         string       `toml:"desc,omitempty" yaml:"desc,omitempty"`
	Homepage     string       `toml:"homepage,omitempty" yaml:"homepage,omitempty"`
	Version      string       `toml:"version" yaml:"version"`
	Revision     int          `toml:"revision,omitempty" yaml:"revision,omitempty"`
	Source       Source       `toml:"source" yaml:"source"`
	Dependencies []Dependency `toml:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Install      InstallSpec  `toml:"install" yaml:"install"`
	Test         TestSpec     `toml:"test,omitempty" yaml:"test,omitempty"`

	// File is where the formula was loaded from; "bundled:<name>" for
	// formulas shipped inside the binary.
	File string `toml:"-" yaml:"-"`
}

// Source says where the project lives
type Source struct {
	URL   string `toml:"url" yaml:"url"`
	Using string `toml:"using,omitempty" yaml:"using,omitempty"`
	Ref   string `toml:"ref,omitempty" yaml:"ref,omitempty"`
	Head  string `toml:"head,omitempty" yaml:"head,omitempty"`
}

// Dependency is a named tool required around the build
type Dependency struct {
	Name string         `toml:"name" yaml:"name"`
	Kind DependencyKind `toml:"kind,omitempty" yaml:"kind,omitempty"`
}

// InstallSpec is the install procedure
type InstallSpec struct {
	// Env is applied to every build command; values may use placeholders.
	Env map[string]string `toml:"env,omitempty" yaml:"env,omitempty"`
	// StageDir is where the fetched tree is moved, relative to the build path.
	StageDir string `toml:"stage_dir,omitempty" yaml:"stage_dir,omitempty"`
	// Commands run in order inside the stage dir.
	Commands [][]string `toml:"commands" yaml:"commands"`
	// Artifact is the produced binary, relative to the stage dir.
	Artifact string `toml:"artifact" yaml:"artifact"`
	// BinName is the installed name under <prefix>/bin.
	BinName string `toml:"bin_name,omitempty" yaml:"bin_name,omitempty"`
}

// TestSpec is the smoke test
type TestSpec struct {
	Command []string `toml:"command,omitempty" yaml:"command,omitempty"`
	Expect  string   `toml:"expect,omitempty" yaml:"expect,omitempty"`
}

// PkgVersion is the keg directory name: version, plus _revision when set
func (f *Formula) PkgVersion() string {
	if f.Revision > 0 {
		return f.Version + "_" + strconv.Itoa(f.Revision)
	}
	return f.Version
}

// SourceUsing returns the fetch strategy, defaulting to git
func (f *Formula) SourceUsing() string {
	if f.Source.Using == "" {
		return UsingGit
	}
	return f.Source.Using
}

// FetchURL returns the URL to fetch from
func (f *Formula) FetchURL(head bool) string {
	if head && f.Source.Head != "" {
		return f.Source.Head
	}
	return f.Source.URL
}

// FetchRef returns the ref to check out. The version label doubles as the
// ref when none is pinned, so version "master" tracks the master branch.
func (f *Formula) FetchRef(head bool) string {
	if head {
		return HeadRef
	}
	if f.Source.Ref != "" {
		return f.Source.Ref
	}
	return f.Version
}

// BinName returns the installed binary name
func (f *Formula) BinName() string {
	if f.Install.BinName != "" {
		return f.Install.BinName
	}
	return filepath.Base(filepath.FromSlash(f.Install.Artifact))
}

// KindOf returns the dependency kind, defaulting to build
func (d Dependency) KindOf() DependencyKind {
	if d.Kind == "" {
		return KindBuild
	}
	return d.Kind
}

// HasTestCommand reports whether the formula declares a real test command.
// An empty command or a bare "true" is the always-pass check.
func (f *Formula) HasTestCommand() bool {
	cmd := f.Test.Command
	if len(cmd) == 0 {
		return false
	}
	return !(len(cmd) == 1 && strings.TrimSpace(cmd[0]) == "true")
}

// Vars are the values substituted into placeholders
type Vars struct {
	BuildPath string
	StagePath string
	Prefix    string
	Bin       string
}

// Expander substitutes {{buildpath}}, {{stagepath}}, {{prefix}}, {{bin}},
// {{name}} and {{version}}
type Expander struct {
	r *strings.Replacer
}

// NewExpander binds placeholder values for one formula
func (f *Formula) NewExpander(v Vars) *Expander {
	return &Expander{r: strings.NewReplacer(
		"{{buildpath}}", v.BuildPath,
		"{{stagepath}}", v.StagePath,
		"{{prefix}}", v.Prefix,
		"{{bin}}", v.Bin,
		"{{name}}", f.Name,
		"{{version}}", f.Version,
	)}
}

// String expands one value
func (e *Expander) String(s string) string {
	return e.r.Replace(s)
}

// Argv expands every element of a command
func (e *Expander) Argv(argv []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = e.r.Replace(a)
	}
	return out
}

// Env expands a variable map into KEY=value pairs sorted by key
func (e *Expander) Env(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e.r.Replace(env[k]))
	}
	return out
}
