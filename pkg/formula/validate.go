package formula

import (
	"path"
	"regexp"
	"strings"

	"github.com/arthur-debert/formulary/pkg/errors"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9+._@-]*$`)

// Validate checks the descriptor for consistency. The first violation is
// returned as an ErrFormulaInvalid error with the field in its details.
func (f *Formula) Validate() error {
	invalid := func(field, format string, args ...interface{}) error {
		return errors.Newf(errors.ErrFormulaInvalid, "formula %s: "+format, append([]interface{}{f.displayName()}, args...)...).
			WithDetail("field", field).
			WithDetail("file", f.File)
	}

	if !nameRe.MatchString(f.Name) {
		return invalid("name", "name %q must match %s", f.Name, nameRe.String())
	}
	if strings.TrimSpace(f.Version) == "" {
		return invalid("version", "version is required")
	}
	if strings.ContainsAny(f.Version, "/\\ ") {
		return invalid("version", "version %q must not contain slashes or spaces", f.Version)
	}
	if strings.HasPrefix(f.Version, ".") {
		return invalid("version", "version %q must not start with a dot", f.Version)
	}
	if f.Revision < 0 {
		return invalid("revision", "revision must be >= 0, got %d", f.Revision)
	}
	if pv := f.PkgVersion(); pv != path.Base(pv) || pv == "." || pv == ".." {
		return invalid("version", "version %q does not name a single keg directory", pv)
	}

	if f.Source.URL == "" {
		return invalid("source.url", "source url is required")
	}
	switch f.SourceUsing() {
	case UsingGit, UsingDir:
	default:
		return invalid("source.using", "unknown download strategy %q (expected git or dir)", f.Source.Using)
	}

	seen := make(map[string]bool)
	for i, dep := range f.Dependencies {
		if dep.Name == "" {
			return invalid("depends_on", "dependency #%d has no name", i+1)
		}
		if seen[dep.Name] {
			return invalid("depends_on", "dependency %q declared twice", dep.Name)
		}
		seen[dep.Name] = true
		switch dep.KindOf() {
		case KindBuild, KindRun, KindTest, KindOptional:
		default:
			return invalid("depends_on", "dependency %q has unknown kind %q", dep.Name, dep.Kind)
		}
	}

	if len(f.Install.Commands) == 0 {
		return invalid("install.commands", "at least one install command is required")
	}
	for i, argv := range f.Install.Commands {
		if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
			return invalid("install.commands", "install command #%d is empty", i+1)
		}
	}
	for k := range f.Install.Env {
		if k == "" || strings.ContainsAny(k, "= ") {
			return invalid("install.env", "invalid environment variable name %q", k)
		}
	}
	if f.Install.StageDir != "" && !isRelativeInside(f.Install.StageDir) {
		return invalid("install.stage_dir", "stage_dir %q must be a relative path inside the build path", f.Install.StageDir)
	}
	if f.Install.Artifact == "" {
		return invalid("install.artifact", "artifact is required")
	}
	if !isRelativeInside(f.Install.Artifact) {
		return invalid("install.artifact", "artifact %q must be a relative path inside the stage dir", f.Install.Artifact)
	}
	if bin := f.BinName(); bin == "" || bin == "." || strings.ContainsAny(bin, "/\\") {
		return invalid("install.bin_name", "bin_name %q must be a plain file name", bin)
	}

	if len(f.Test.Command) > 0 && strings.TrimSpace(f.Test.Command[0]) == "" {
		return invalid("test.command", "test command must not start with an empty argument")
	}

	return nil
}

func (f *Formula) displayName() string {
	if f.Name != "" {
		return f.Name
	}
	if f.File != "" {
		return f.File
	}
	return "<unnamed>"
}

// isRelativeInside reports whether p is relative and does not climb out
func isRelativeInside(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
