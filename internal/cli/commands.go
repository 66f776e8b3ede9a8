package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/fetch"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/lifecycle"
	"github.com/arthur-debert/formulary/pkg/logging"
	"github.com/arthur-debert/formulary/pkg/report"
	"github.com/arthur-debert/formulary/pkg/ui/display"
)

func (c *cli) newInstallCmd() *cobra.Command {
	var (
		opts  lifecycle.Options
		noLnk bool
		junit string
	)

	cmd := &cobra.Command{
		Use:               "install <formula|file>",
		Short:             MsgInstallShort,
		Example:           MsgInstallExample,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.formulaCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			logger := logging.GetLogger("cli.install")

			f, err := a.finder().Find(args[0])
			if err != nil {
				return err
			}

			opts.Link = !noLnk
			opts.Pin = opts.Pin || a.cfg.Fetch.Pin
			opts.KeepWorkspace = opts.KeepWorkspace || a.cfg.Build.KeepWorkspace

			logger.Info().
				Str("formula", f.Name).
				Str("pkg_version", f.PkgVersion()).
				Bool("head", opts.Head).
				Bool("dry_run", opts.DryRun).
				Msg("Installing formula")

			rep, runErr := a.runner(cmd.Context(), opts.Pin).Run(cmd.Context(), f, opts)

			if junit != "" {
				if err := writeJUnit(junit, rep); err != nil {
					return err
				}
			}

			r, err := a.renderer()
			if err != nil {
				return err
			}
			if err := r.RenderResult(display.FromReport("install", rep, opts.DryRun)); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&opts.Head, "head", false, MsgFlagHead)
	cmd.Flags().BoolVar(&opts.Force, "force", false, MsgFlagForce)
	cmd.Flags().BoolVar(&noLnk, "no-link", false, MsgFlagNoLink)
	cmd.Flags().BoolVar(&opts.SkipTest, "skip-test", false, MsgFlagSkipTest)
	cmd.Flags().BoolVar(&opts.KeepWorkspace, "keep-workspace", false, MsgFlagKeepWorkspace)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, MsgFlagDryRun)
	cmd.Flags().BoolVar(&opts.Pin, "pin", false, MsgFlagPin)
	cmd.Flags().StringVar(&junit, "junit", "", MsgFlagJUnit)

	return cmd
}

func writeJUnit(path string, rep *lifecycle.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to create JUnit report %s", path)
	}
	if err := report.WriteJUnit(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to write JUnit report %s", path)
	}
	return nil
}

func (c *cli) newFetchCmd() *cobra.Command {
	var (
		dest string
		head bool
		pin  bool
	)

	cmd := &cobra.Command{
		Use:               "fetch <formula|file>",
		Short:             MsgFetchShort,
		Long:              MsgFetchLong,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.formulaCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()

			f, err := a.finder().Find(args[0])
			if err != nil {
				return err
			}

			git := a.gitFetcher()
			req := fetch.RequestFor(f, head)
			req.Dest = dest
			if (pin || a.cfg.Fetch.Pin) && f.SourceUsing() == formula.UsingGit {
				sha, err := a.pinner(ctx, git).Pin(ctx, req.URL, req.Ref)
				if err != nil {
					return err
				}
				req.Ref = sha
			}

			res, err := fetch.ForFormula(f, git, fetch.NewDirFetcher(a.paths.BuildDir())).Fetch(ctx, req)
			if err != nil {
				return err
			}

			r, err := a.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(display.FromFetch(f.Name, res))
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", MsgFlagDest)
	cmd.Flags().BoolVar(&head, "head", false, MsgFlagHead)
	cmd.Flags().BoolVar(&pin, "pin", false, MsgFlagPin)

	return cmd
}

func (c *cli) newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "test <formula|file>",
		Short:             MsgTestShort,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.formulaCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app

			f, err := a.finder().Find(args[0])
			if err != nil {
				return err
			}
			receipt, err := a.installer().Installed(f.Name)
			if err != nil {
				return err
			}

			rep, runErr := a.runner(cmd.Context(), false).RunTest(cmd.Context(), f, receipt)

			r, err := a.renderer()
			if err != nil {
				return err
			}
			if err := r.RenderResult(display.FromReport("test", rep, false)); err != nil {
				return err
			}
			return runErr
		},
	}
}

func (c *cli) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "info <formula|file>",
		Short:             MsgInfoShort,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.formulaCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app

			f, err := a.finder().Find(args[0])
			if err != nil {
				return err
			}

			receipts, err := a.installer().List()
			if err != nil {
				return err
			}
			var installed []string
			for _, rc := range receipts {
				if rc.Name == f.Name {
					installed = append(installed, rc.PkgVersion)
				}
			}

			r, err := a.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(display.FromFormula(f, installed))
		},
	}
}

func (c *cli) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate <file>...",
		Short:   MsgValidateShort,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app

			result := &display.ValidationResult{}
			var firstErr error
			for _, path := range args {
				v := display.Validation{File: path}
				f, err := formula.LoadFile(path)
				if err != nil {
					v.Error = err.Error()
					if firstErr == nil {
						firstErr = err
					}
				} else {
					v.Valid = true
					v.Name = f.Name
				}
				result.Files = append(result.Files, v)
			}

			r, err := a.renderer()
			if err != nil {
				return err
			}
			if err := r.RenderResult(result); err != nil {
				return err
			}
			return firstErr
		},
	}
}

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   MsgListShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app

			receipts, err := a.installer().List()
			if err != nil {
				return err
			}

			r, err := a.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(display.FromReceipts("list", receipts))
		},
	}
}

func (c *cli) newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "uninstall <formula>",
		Short:             MsgUninstallShort,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.installedCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app

			removed, err := a.installer().Uninstall(args[0])
			if err != nil {
				return err
			}

			r, err := a.renderer()
			if err != nil {
				return err
			}
			return r.RenderResult(display.FromReceipts("uninstall", removed))
		},
	}
}
