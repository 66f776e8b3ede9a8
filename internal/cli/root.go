// Package cli is the formulary command line: a cobra command tree that
// loads config, wires the lifecycle runner and renders results.
package cli

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/formulary/internal/version"
	"github.com/arthur-debert/formulary/pkg/cobrax/topics"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/logging"
	"github.com/arthur-debert/formulary/pkg/ui"
)

//go:embed topics/*.md
var topicFiles embed.FS

// skipAppAnnotation marks commands that must work without a valid config
const skipAppAnnotation = "formulary/skip-app"

type cli struct {
	global globalOptions
	app    *app
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:     "formulary",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(c.global.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			if !needsApp(cmd) {
				return nil
			}
			a, err := newApp(&c.global, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New(errors.ErrInvalidInput, MsgNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().CountVarP(&c.global.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&c.global.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&c.global.format, "format", "", MsgFlagFormat)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "Other commands:"})

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newTestCmd())
	rootCmd.AddCommand(c.newInfoCmd())
	rootCmd.AddCommand(c.newValidateCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newUninstallCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd())

	installTopics(rootCmd)

	return rootCmd
}

func needsApp(cmd *cobra.Command) bool {
	if cmd.Name() == "help" {
		return false
	}
	_, skip := cmd.Annotations[skipAppAnnotation]
	return !skip
}

// installTopics adds the embedded help topics; a broken topic tree only
// costs the topics, never the CLI
func installTopics(rootCmd *cobra.Command) {
	sub, err := fs.Sub(topicFiles, "topics")
	if err != nil {
		log.Debug().Err(err).Msg("Help topics unavailable")
		return
	}
	var renderer topics.Renderer = &topics.PlainRenderer{}
	if f, ok := rootCmd.OutOrStdout().(*os.File); ok && ui.DetectFormat(f) == ui.FormatTerminal {
		renderer = topics.NewGlamourRenderer()
	}
	m, err := topics.Load(sub, topics.Options{Renderer: renderer})
	if err != nil {
		log.Debug().Err(err).Msg("Help topics unavailable")
		return
	}
	m.Install(rootCmd)
}

// Execute runs the command line and returns the process exit code: 0 on
// success, 1 on any failure.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	r, rerr := ui.NewRenderer(errorFormat(rootCmd), stderr)
	if rerr != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	_ = r.RenderError(err)
	return 1
}

// errorFormat honours --format even when config loading failed
func errorFormat(rootCmd *cobra.Command) ui.Format {
	name, _ := rootCmd.PersistentFlags().GetString("format")
	format, err := ui.ParseFormat(name)
	if err != nil {
		return ui.FormatText
	}
	return format
}
