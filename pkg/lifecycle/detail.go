package lifecycle

import (
	"strings"

	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/fetch"
)

func depsDetail(resolved []deps.Resolved) string {
	var parts []string
	for _, d := range resolved {
		switch {
		case d.Found:
			parts = append(parts, d.Name+"="+d.Path)
		case d.Checked:
			parts = append(parts, d.Name+" (missing)")
		}
	}
	if len(parts) == 0 {
		return "no build dependencies"
	}
	return strings.Join(parts, ", ")
}

func fetchDetail(res *fetch.Result) string {
	rev := res.Ref
	if res.Commit != "" {
		rev = shortSHA(res.Commit)
	}
	return rev + " " + res.Digest
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
