package display

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/fetch"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/install"
	"github.com/arthur-debert/formulary/pkg/lifecycle"
)

// FromReport converts a lifecycle report
func FromReport(command string, rep *lifecycle.Report, dryRun bool) *RunResult {
	res := &RunResult{
		Command:    command,
		Formula:    rep.Formula,
		PkgVersion: rep.PkgVersion,
		Link:       rep.Link,
		Warnings:   rep.Warnings,
		DryRun:     dryRun,
	}
	for _, h := range rep.Hooks {
		line := HookLine{
			Hook:     string(h.Hook),
			Status:   string(h.Status),
			Duration: h.Duration,
			Detail:   h.Detail,
		}
		if h.Err != nil {
			line.Error = h.Err.Error()
			line.Code = string(errors.GetErrorCode(h.Err))
		}
		res.Hooks = append(res.Hooks, line)
	}
	if rep.Fetch != nil {
		res.Commit = rep.Fetch.Commit
		res.Digest = rep.Fetch.Digest
	}
	if rep.Install != nil {
		res.Binary = rep.Install.Binary
	}
	if rep.Test != nil {
		res.TestMode = string(rep.Test.Mode)
	}
	return res
}

// FromFetch converts a fetch result
func FromFetch(name string, res *fetch.Result) *FetchResult {
	return &FetchResult{
		Formula:   name,
		URL:       res.URL,
		Ref:       res.Ref,
		Commit:    res.Commit,
		Digest:    res.Digest,
		Workspace: res.Workspace,
	}
}

// FromReceipts converts install receipts
func FromReceipts(command string, receipts []*install.Receipt) *KegList {
	list := &KegList{Command: command, Kegs: []Keg{}}
	for _, r := range receipts {
		list.Kegs = append(list.Kegs, Keg{
			Name:        r.Name,
			PkgVersion:  r.PkgVersion,
			Binary:      r.Binary,
			Checksum:    r.Checksum,
			Commit:      r.Commit,
			Head:        r.Head,
			InstalledAt: r.InstalledAt,
		})
	}
	return list
}

// FromFormula converts a formula; installed lists installed package versions
func FromFormula(f *formula.Formula, installed []string) *FormulaInfo {
	info := &FormulaInfo{
		Name:         f.Name,
		Desc:         f.Desc,
		Homepage:     f.Homepage,
		Version:      f.Version,
		PkgVersion:   f.PkgVersion(),
		File:         f.File,
		URL:          f.Source.URL,
		Ref:          f.FetchRef(false),
		Head:         f.Source.Head,
		Dependencies: []Dependency{},
		StageDir:     f.Install.StageDir,
		Artifact:     f.Install.Artifact,
		BinName:      f.BinName(),
		Installed:    installed,
	}
	for _, d := range f.Dependencies {
		info.Dependencies = append(info.Dependencies, Dependency{Name: d.Name, Kind: string(d.KindOf())})
	}
	for _, c := range f.Install.Commands {
		info.Commands = append(info.Commands, strings.Join(c, " "))
	}
	if f.HasTestCommand() {
		info.Test = strings.Join(f.Test.Command, " ")
		if f.Test.Expect != "" {
			info.Test += fmt.Sprintf(" (expects %q)", f.Test.Expect)
		}
	} else {
		info.Test = "always passes"
	}
	return info
}

// Markdown renders a formula description as markdown
func (i *FormulaInfo) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", i.Name, i.PkgVersion)
	if i.Desc != "" {
		fmt.Fprintf(&b, "%s\n\n", i.Desc)
	}
	if i.Homepage != "" {
		fmt.Fprintf(&b, "<%s>\n\n", i.Homepage)
	}

	b.WriteString("## Source\n\n")
	fmt.Fprintf(&b, "- url: `%s`\n", i.URL)
	fmt.Fprintf(&b, "- ref: `%s`\n", i.Ref)
	if i.Head != "" {
		fmt.Fprintf(&b, "- head: `%s`\n", i.Head)
	}
	fmt.Fprintf(&b, "- formula: `%s`\n\n", i.File)

	b.WriteString("## Dependencies\n\n")
	if len(i.Dependencies) == 0 {
		b.WriteString("None.\n\n")
	}
	for _, d := range i.Dependencies {
		fmt.Fprintf(&b, "- %s (%s)\n", d.Name, d.Kind)
	}
	if len(i.Dependencies) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Install\n\n")
	if i.StageDir != "" {
		fmt.Fprintf(&b, "Staged at `%s`.\n\n", i.StageDir)
	}
	b.WriteString("```sh\n")
	for _, c := range i.Commands {
		b.WriteString(c + "\n")
	}
	b.WriteString("```\n\n")
	fmt.Fprintf(&b, "Installs `%s` as `bin/%s`.\n\n", i.Artifact, i.BinName)

	b.WriteString("## Test\n\n")
	fmt.Fprintf(&b, "%s\n", i.Test)

	if len(i.Installed) > 0 {
		b.WriteString("\n## Installed\n\n")
		for _, v := range i.Installed {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	return b.String()
}
