package formula

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclFormula mirrors Formula with the block structure used in .hcl files:
//
//	name    = "example"
//	version = "master"
//	source { url = "https://..." }
//	depends_on "make" { kind = "build" }
//	install { commands = [["make", "build"]] artifact = "bin/example" }
//	test { command = ["true"] }
type hclFormula struct {
	Name         string          `hcl:"name"`
	Desc         string          `hcl:"desc,optional"`
	Homepage     string          `hcl:"homepage,optional"`
	Version      string          `hcl:"version"`
	Revision     int             `hcl:"revision,optional"`
	Source       *hclSource      `hcl:"source,block"`
	Dependencies []hclDependency `hcl:"depends_on,block"`
	Install      *hclInstall     `hcl:"install,block"`
	Test         *hclTest        `hcl:"test,block"`
}

type hclSource struct {
	URL   string `hcl:"url"`
	Using string `hcl:"using,optional"`
	Ref   string `hcl:"ref,optional"`
	Head  string `hcl:"head,optional"`
}

type hclDependency struct {
	Name string `hcl:"name,label"`
	Kind string `hcl:"kind,optional"`
}

type hclInstall struct {
	Env      map[string]string `hcl:"env,optional"`
	StageDir string            `hcl:"stage_dir,optional"`
	Commands [][]string        `hcl:"commands"`
	Artifact string            `hcl:"artifact"`
	BinName  string            `hcl:"bin_name,optional"`
}

type hclTest struct {
	Command []string `hcl:"command,optional"`
	Expect  string   `hcl:"expect,optional"`
}

func parseHCL(data []byte, filename string) (*Formula, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var parsed hclFormula
	diags = gohcl.DecodeBody(file.Body, evalContext(), &parsed)
	if diags.HasErrors() {
		return nil, diags
	}

	f := &Formula{
		Name:     parsed.Name,
		Desc:     parsed.Desc,
		Homepage: parsed.Homepage,
		Version:  parsed.Version,
		Revision: parsed.Revision,
	}
	if parsed.Source != nil {
		f.Source = Source{
			URL:   parsed.Source.URL,
			Using: parsed.Source.Using,
			Ref:   parsed.Source.Ref,
			Head:  parsed.Source.Head,
		}
	}
	for _, d := range parsed.Dependencies {
		f.Dependencies = append(f.Dependencies, Dependency{Name: d.Name, Kind: DependencyKind(d.Kind)})
	}
	if parsed.Install != nil {
		f.Install = InstallSpec{
			Env:      parsed.Install.Env,
			StageDir: parsed.Install.StageDir,
			Commands: parsed.Install.Commands,
			Artifact: parsed.Install.Artifact,
			BinName:  parsed.Install.BinName,
		}
	}
	if parsed.Test != nil {
		f.Test = TestSpec{Command: parsed.Test.Command, Expect: parsed.Test.Expect}
	}
	return f, nil
}

// evalContext exposes the process environment as env.NAME to expressions
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hclIdentifier(k) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

func hclIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
