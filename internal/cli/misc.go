package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/formulary/internal/version"
	"github.com/arthur-debert/formulary/pkg/config"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/paths"
)

var skipApp = map[string]string{skipAppAnnotation: "true"}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       MsgVersionShort,
		GroupID:     "misc",
		Args:        cobra.NoArgs,
		Annotations: skipApp,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), version.Info())
			return err
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       MsgConfigShort,
		GroupID:     "misc",
		Args:        cobra.NoArgs,
		Annotations: skipApp,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "# user config: %s\n", paths.ConfigFilePath()); err != nil {
				return err
			}
			_, err := fmt.Fprint(out, config.DefaultsContent())
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: MsgCompletionShort,
		Long: `To load completions:

Bash:
  $ source <(formulary completion bash)

Zsh:
  $ formulary completion zsh > "${fpath[1]}/_formulary"

Fish:
  $ formulary completion fish | source

PowerShell:
  PS> formulary completion powershell | Out-String | Invoke-Expression
`,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Annotations:           skipApp,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// ManHeader is shared with cmd/formulary-manpage
func ManHeader() *doc.GenManHeader {
	return &doc.GenManHeader{
		Title:   "FORMULARY",
		Section: "1",
		Source:  "formulary " + version.Version,
		Manual:  "formulary manual",
	}
}

func newManCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:         "man",
		Short:       MsgManShort,
		GroupID:     "misc",
		Args:        cobra.NoArgs,
		Annotations: skipApp,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return doc.GenMan(cmd.Root(), ManHeader(), cmd.OutOrStdout())
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "failed to create %s", dir)
			}
			return doc.GenManTree(cmd.Root(), ManHeader(), dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", MsgFlagManDir)
	return cmd
}

// formulaCompletion completes formula names for the first argument
func (c *cli) formulaCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	a, err := newApp(&c.global, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names, err := a.finder().Names()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	// file paths are accepted too
	return names, cobra.ShellCompDirectiveDefault
}

// installedCompletion completes installed formula names
func (c *cli) installedCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	a, err := newApp(&c.global, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	receipts, err := a.installer().List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range receipts {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
