// Package text provides plain text output without any styling
package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/formulary/pkg/ui/display"
)

// Renderer provides plain text output without colors or styling
type Renderer struct {
	output io.Writer
}

// New creates a new text renderer
func New(output io.Writer) (*Renderer, error) {
	return &Renderer{output: output}, nil
}

// RenderResult renders a display view model as plain text
func (r *Renderer) RenderResult(result interface{}) error {
	var b strings.Builder
	switch v := result.(type) {
	case *display.RunResult:
		writeRun(&b, v)
	case *display.FetchResult:
		fmt.Fprintf(&b, "%s fetched\n", v.Formula)
		fmt.Fprintf(&b, "  url:       %s\n", v.URL)
		fmt.Fprintf(&b, "  ref:       %s\n", v.Ref)
		if v.Commit != "" {
			fmt.Fprintf(&b, "  commit:    %s\n", v.Commit)
		}
		fmt.Fprintf(&b, "  digest:    %s\n", v.Digest)
		fmt.Fprintf(&b, "  workspace: %s\n", v.Workspace)
	case *display.KegList:
		writeKegs(&b, v)
	case *display.FormulaInfo:
		b.WriteString(v.Markdown())
	case *display.ValidationResult:
		for _, f := range v.Files {
			if f.Valid {
				fmt.Fprintf(&b, "ok      %s (%s)\n", f.File, f.Name)
			} else {
				fmt.Fprintf(&b, "invalid %s: %s\n", f.File, f.Error)
			}
		}
	case string:
		b.WriteString(v)
		if !strings.HasSuffix(v, "\n") {
			b.WriteString("\n")
		}
	default:
		fmt.Fprintf(&b, "%+v\n", result)
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

func writeRun(b *strings.Builder, v *display.RunResult) {
	fmt.Fprintf(b, "%s %s %s\n", v.Command, v.Formula, v.PkgVersion)
	for _, h := range v.Hooks {
		line := fmt.Sprintf("  %-20s %-7s", h.Hook, h.Status)
		if h.Detail != "" {
			line += " " + h.Detail
		}
		if h.Code != "" {
			line += " [" + h.Code + "]"
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	if v.Binary != "" {
		fmt.Fprintf(b, "binary: %s\n", v.Binary)
	}
	if v.Link != "" {
		fmt.Fprintf(b, "linked: %s\n", v.Link)
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(b, "warning: %s\n", w)
	}
}

func writeKegs(b *strings.Builder, v *display.KegList) {
	if len(v.Kegs) == 0 {
		b.WriteString("No formulas installed.\n")
		return
	}
	for _, k := range v.Kegs {
		line := fmt.Sprintf("%s %s", k.Name, k.PkgVersion)
		if k.Commit != "" {
			line += " (" + display.ShortSHA(k.Commit) + ")"
		}
		if k.Head {
			line += " [head]"
		}
		b.WriteString(line + "\n")
	}
}

// RenderError renders an error as plain text
func (r *Renderer) RenderError(err error) error {
	v := display.NewErrorView(err)
	var b strings.Builder
	if v.Code != "" {
		fmt.Fprintf(&b, "Error [%s]: %s\n", v.Code, v.Message)
	} else {
		fmt.Fprintf(&b, "Error: %s\n", v.Message)
	}
	for _, d := range v.Details {
		fmt.Fprintf(&b, "  %s\n", d)
	}
	if v.Output != "" {
		b.WriteString("  output:\n")
		for _, line := range strings.Split(v.Output, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	_, werr := io.WriteString(r.output, b.String())
	return werr
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, msg)
	return err
}
