package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/formulary/pkg/lifecycle"
)

// Progress prints one line per hook as a run advances. It implements
// lifecycle.Observer and is meant for stderr so stdout stays the result.
type Progress struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
	muted *pterm.Style
}

// NewProgress creates a Progress; plain drops pterm prefixes and colors
func NewProgress(out io.Writer, plain bool) *Progress {
	return &Progress{
		out:   out,
		plain: plain,
		muted: pterm.NewStyle(pterm.FgGray),
	}
}

// HookStarted announces a hook
func (p *Progress) HookStarted(hook lifecycle.Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plain {
		p.println(fmt.Sprintf("==> %s", hook))
		return
	}
	p.println(pterm.Info.Sprintf("%s", hook))
}

// HookFinished reports a hook's status
func (p *Progress) HookFinished(res lifecycle.HookResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := string(res.Hook)
	if res.Detail != "" {
		msg += ": " + res.Detail
	}
	took := res.Duration.Round(time.Millisecond).String()

	if p.plain {
		p.println(fmt.Sprintf("    %s %s (%s)", res.Status, msg, took))
		return
	}
	switch res.Status {
	case lifecycle.StatusOK:
		p.println(pterm.Success.Sprintf("%s %s", msg, p.muted.Sprint(took)))
	case lifecycle.StatusFailed:
		p.println(pterm.Error.Sprintf("%s", msg))
	default:
		p.println(pterm.Warning.Sprintf("%s skipped", msg))
	}
}

func (p *Progress) println(s string) {
	_, _ = fmt.Fprintln(p.out, s)
}
