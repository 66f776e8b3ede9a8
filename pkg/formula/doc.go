// Package formula defines the formula descriptor: the declarative recipe
// formulary evaluates to fetch, build, install and smoke-test one binary.
//
// A descriptor carries metadata (name, desc, homepage, version, revision),
// a source (url, download strategy, ref, head url), an ordered dependency
// list, an install procedure and a test procedure. It is pure
// configuration; the hooks that act on it live in pkg/deps, pkg/fetch,
// pkg/install and pkg/smoke.
//
// # File formats
//
// Formulas are read from TOML (canonical), YAML or HCL files, chosen by
// extension. The bundled go-poll-explain-queries formula is the reference:
//
//	name     = "go-poll-explain-queries"
//	version  = "master"
//	revision = 1
//
//	[source]
//	url = "https://github.com/dathan/go-poll-explain-queries.git"
//
//	[[depends_on]]
//	name = "make"
//
//	[install]
//	stage_dir = "src/github.com/dathan/go-poll-explain-queries"
//	commands  = [["make", "build"], ["ls", "-ltarh"]]
//	artifact  = "bin/example1"
//	env       = { GOPATH = "{{buildpath}}" }
//
// HCL files expose the process environment as env.NAME.
//
// # Placeholders
//
// Install env values, install commands and the test command may use
// {{buildpath}}, {{stagepath}}, {{prefix}}, {{bin}}, {{name}} and
// {{version}}. They are expanded per install, never written back to the
// process environment.
//
// # Versions
//
// The keg directory is PkgVersion(): "master" with revision 1 becomes
// "master_1". A version that is a branch name is kept literally and also
// serves as the fetch ref unless source.ref pins something else.
package formula
