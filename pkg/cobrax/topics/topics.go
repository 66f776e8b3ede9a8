// Package topics adds file-backed help topics to a cobra command tree:
// `<app> help <topic>` prints a topic, `<app> help topics` lists them and
// anything else falls through to cobra's command help.
package topics

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Topic is one help document
type Topic struct {
	Name    string
	Path    string
	Content string
}

// Options configures a Manager
type Options struct {
	// Extensions are the file extensions treated as topics; defaults to
	// .md and .txt.
	Extensions []string
	// Renderer formats topics; defaults to PlainRenderer.
	Renderer Renderer
}

// Manager holds the topics found in a file system
type Manager struct {
	topics   map[string]*Topic
	exts     []string
	renderer Renderer
}

// Load scans fsys recursively for topic files
func Load(fsys fs.FS, opts Options) (*Manager, error) {
	m := &Manager{
		topics:   make(map[string]*Topic),
		exts:     opts.Extensions,
		renderer: opts.Renderer,
	}
	if len(m.exts) == 0 {
		m.exts = []string{".md", ".txt"}
	}
	if m.renderer == nil {
		m.renderer = &PlainRenderer{}
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !m.supported(path.Ext(p)) {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(path.Base(p), path.Ext(p))
		m.topics[name] = &Topic{Name: name, Path: p, Content: string(content)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan topics: %w", err)
	}
	return m, nil
}

func (m *Manager) supported(ext string) bool {
	for _, e := range m.exts {
		if e == ext {
			return true
		}
	}
	return false
}

// Get returns a topic by name; "--flag" style names also match "option-flag"
func (m *Manager) Get(name string) (*Topic, bool) {
	name = strings.TrimLeft(name, "-")
	if t, ok := m.topics[name]; ok {
		return t, true
	}
	t, ok := m.topics["option-"+name]
	return t, ok
}

// Names returns every topic name, sorted
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for n := range m.topics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render formats a topic with the configured renderer
func (m *Manager) Render(t *Topic) string {
	return m.renderer.Render(t.Content, path.Ext(t.Path))
}

// Install replaces rootCmd's help command with one that also knows topics
func (m *Manager) Install(rootCmd *cobra.Command) {
	originalHelp := rootCmd.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: `Help provides help for any command or topic.

To see all available help topics:
  ` + rootCmd.Name() + ` help topics`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range rootCmd.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.Names()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			switch {
			case len(args) == 0:
				originalHelp(rootCmd, args)
			case args[0] == "topics":
				m.list(out, rootCmd.Name())
			default:
				if t, ok := m.Get(args[0]); ok {
					_, _ = fmt.Fprint(out, m.Render(t))
					return
				}
				target, _, err := rootCmd.Find(args)
				if err != nil || target == nil {
					originalHelp(rootCmd, args)
					return
				}
				originalHelp(target, args)
			}
		},
	}

	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" {
			rootCmd.RemoveCommand(c)
			break
		}
	}
	rootCmd.SetHelpCommand(helpCmd)
}

func (m *Manager) list(out io.Writer, app string) {
	names := m.Names()
	if len(names) == 0 {
		_, _ = fmt.Fprintln(out, "No help topics available.")
		return
	}

	var general, options []string
	for _, n := range names {
		if strings.HasPrefix(n, "option-") {
			options = append(options, "--"+strings.TrimPrefix(n, "option-"))
		} else {
			general = append(general, n)
		}
	}

	_, _ = fmt.Fprintln(out, "Available help topics:")
	if len(general) > 0 {
		_, _ = fmt.Fprintln(out, "\nGeneral topics:")
		for _, n := range general {
			_, _ = fmt.Fprintf(out, "  %s\n", n)
		}
	}
	if len(options) > 0 {
		_, _ = fmt.Fprintln(out, "\nOption topics:")
		for _, n := range options {
			_, _ = fmt.Fprintf(out, "  %s\n", n)
		}
	}
	_, _ = fmt.Fprintf(out, "\nUse '%s help <topic>' to read about a specific topic.\n", app)
}
