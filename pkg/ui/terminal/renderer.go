// Package terminal provides rich terminal output with colors and styling
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/arthur-debert/formulary/pkg/ui/display"
)

const wordWrap = 80

// Renderer draws view models with lipgloss and formula descriptions with
// glamour
type Renderer struct {
	output io.Writer
	styles styles
}

// New creates a new terminal renderer
func New(w io.Writer) (*Renderer, error) {
	return &Renderer{
		output: w,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}, nil
}

// RenderResult renders a display view model with terminal styling
func (r *Renderer) RenderResult(result interface{}) error {
	var out string
	switch v := result.(type) {
	case *display.RunResult:
		out = r.run(v)
	case *display.FetchResult:
		out = r.fetch(v)
	case *display.KegList:
		out = r.kegs(v)
	case *display.FormulaInfo:
		md, err := renderMarkdown(v.Markdown())
		if err != nil {
			return err
		}
		out = md
	case *display.ValidationResult:
		out = r.validation(v)
	case string:
		out = v
	default:
		out = fmt.Sprintf("%+v", result)
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(r.output, out)
	return err
}

func (r *Renderer) run(v *display.RunResult) string {
	s := r.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(fmt.Sprintf("%s %s", v.Formula, v.PkgVersion)))
	if v.DryRun {
		b.WriteString(" " + s.Muted.Render("(dry run)"))
	}
	b.WriteString("\n")
	for _, h := range v.Hooks {
		line := "  " + s.Hook.Render(h.Hook) + s.status(h.Status)
		if h.Detail != "" {
			line += "  " + s.Muted.Render(h.Detail)
		}
		if h.Code != "" {
			line += "  " + s.Failed.Render(h.Code)
		}
		b.WriteString(line + "\n")
	}
	if v.Binary != "" {
		b.WriteString("\n" + s.OK.Render("Installed") + " " + s.Accent.Render(v.Binary) + "\n")
	}
	if v.Link != "" {
		b.WriteString(s.Muted.Render("Linked "+v.Link) + "\n")
	}
	for _, w := range v.Warnings {
		b.WriteString(s.Warning.Render("! "+w) + "\n")
	}
	return b.String()
}

func (r *Renderer) fetch(v *display.FetchResult) string {
	s := r.styles
	var b strings.Builder
	b.WriteString(s.OK.Render("Fetched") + " " + s.Title.Render(v.Formula) + "\n")
	row := func(k, val string) {
		if val != "" {
			fmt.Fprintf(&b, "  %s %s\n", s.Muted.Render(fmt.Sprintf("%-10s", k)), val)
		}
	}
	row("url", v.URL)
	row("ref", v.Ref)
	row("commit", v.Commit)
	row("digest", v.Digest)
	row("workspace", s.Accent.Render(v.Workspace))
	return b.String()
}

func (r *Renderer) kegs(v *display.KegList) string {
	s := r.styles
	if len(v.Kegs) == 0 {
		return s.Muted.Render("No formulas installed.")
	}
	var b strings.Builder
	for _, k := range v.Kegs {
		line := s.Title.Render(k.Name) + " " + k.PkgVersion
		if k.Commit != "" {
			line += " " + s.Muted.Render(display.ShortSHA(k.Commit))
		}
		if k.Head {
			line += " " + s.Warning.Render("head")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (r *Renderer) validation(v *display.ValidationResult) string {
	s := r.styles
	var b strings.Builder
	for _, f := range v.Files {
		if f.Valid {
			fmt.Fprintf(&b, "%s %s %s\n", s.status("ok"), f.File, s.Muted.Render(f.Name))
		} else {
			fmt.Fprintf(&b, "%s %s\n%s\n", s.status("failed"), f.File, s.Output.Render(f.Error))
		}
	}
	return b.String()
}

// RenderError renders an error with its code, details and captured output
func (r *Renderer) RenderError(err error) error {
	s := r.styles
	v := display.NewErrorView(err)
	var b strings.Builder
	b.WriteString(s.Failed.Render("Error"))
	if v.Code != "" {
		b.WriteString(" " + s.Failed.Render("["+v.Code+"]"))
	}
	b.WriteString(" " + v.Message + "\n")
	for _, d := range v.Details {
		b.WriteString("  " + s.Muted.Render(d) + "\n")
	}
	if v.Output != "" {
		b.WriteString(s.Output.Render(v.Output) + "\n")
	}
	_, werr := io.WriteString(r.output, b.String())
	return werr
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, r.styles.Accent.Render(msg))
	return err
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
