// Package smoke implements the test hook run against an installed binary.
//
// Without a test command the hook is the always-pass check: it reports
// success without exercising the binary. A formula may declare a command
// (with an optional expected output substring); strict mode replaces the
// always-pass check by `<binary> --version`.
package smoke

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// Mode says how a test was carried out
type Mode string

const (
	ModeAlwaysPass Mode = "always-pass"
	ModeCommand    Mode = "command"
	ModeVersion    Mode = "version"
)

// Target is the installed binary under test
type Target struct {
	Prefix string
	Binary string
}

// Outcome describes a passed test
type Outcome struct {
	Mode    Mode
	Command []string
	Output  string
}

// Tester runs the test hook
type Tester struct {
	strict bool
	logger zerolog.Logger
}

// New creates a Tester; strict enables the --version check for formulas
// without a test command.
func New(strict bool) *Tester {
	return &Tester{
		strict: strict,
		logger: logging.GetLogger("smoke"),
	}
}

// Test runs the formula's test against target
func (t *Tester) Test(ctx context.Context, f *formula.Formula, target Target) (*Outcome, error) {
	var (
		argv []string
		mode Mode
	)
	switch {
	case f.HasTestCommand():
		exp := f.NewExpander(formula.Vars{Prefix: target.Prefix, Bin: target.Binary})
		argv = exp.Argv(f.Test.Command)
		mode = ModeCommand
	case t.strict:
		argv = []string{target.Binary, "--version"}
		mode = ModeVersion
	default:
		t.logger.Info().
			Str("formula", f.Name).
			Msg("No test command, reporting success without running the binary")
		return &Outcome{Mode: ModeAlwaysPass}, nil
	}

	output, err := t.run(ctx, target, argv)
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, errors.Wrapf(err, errors.ErrTestFailed, "test of %s failed: %s", f.Name, strings.Join(argv, " ")).
			WithDetail("formula", f.Name).
			WithDetail("command", argv).
			WithDetail("exit_code", exitCode).
			WithDetail("output", output)
	}

	if mode == ModeCommand && f.Test.Expect != "" && !strings.Contains(output, f.Test.Expect) {
		return nil, errors.Newf(errors.ErrTestFailed, "test of %s: output does not contain %q", f.Name, f.Test.Expect).
			WithDetail("formula", f.Name).
			WithDetail("command", argv).
			WithDetail("output", output)
	}

	t.logger.Info().
		Str("formula", f.Name).
		Str("mode", string(mode)).
		Msg("Test passed")
	return &Outcome{Mode: mode, Command: argv, Output: output}, nil
}

// run executes argv in a throwaway directory with the keg's bin first on
// PATH and returns the combined output.
func (t *Tester) run(ctx context.Context, target Target, argv []string) (string, error) {
	dir, err := os.MkdirTemp("", "formulary-test-")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	binDir := filepath.Dir(target.Binary)
	bin, err := deps.LookPath(argv[0], []string{binDir})
	if err != nil {
		return "", err
	}

	logging.LogCommand(argv[0], argv[1:])
	cmd := exec.CommandContext(ctx, bin, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"PATH="+deps.SearchPath([]string{binDir}),
		"HOME="+dir,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err = cmd.Run()

	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line != "" {
			t.logger.Debug().Str("stream", "test").Msg(line)
		}
	}
	return out.String(), err
}
