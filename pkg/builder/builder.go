// Package builder runs a formula's build inside a staged workspace. The
// Builder interface is the build-system capability the install hook
// delegates to; CommandBuilder is the implementation that runs the
// formula's install commands.
package builder

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/deps"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// Workspace is everything a build may touch. Env holds explicit KEY=value
// overrides for child processes; the parent environment is never changed.
type Workspace struct {
	Formula   *formula.Formula
	BuildPath string
	StagePath string
	Prefix    string
	Env       []string
}

// Builder produces the formula's artifact and returns its absolute path
type Builder interface {
	Build(ctx context.Context, ws Workspace) (string, error)
}

// waitDelay bounds how long output copying may outlive a killed command
const waitDelay = 5 * time.Second

// Options configures a CommandBuilder
type Options struct {
	// Path is prepended to PATH for every command.
	Path []string
	// Output receives the combined output of every command, e.g. the
	// terminal. Output is logged at debug level regardless.
	Output io.Writer
	// Timeout bounds the whole build; zero means none.
	Timeout time.Duration
}

// CommandBuilder runs Install.Commands in order inside the stage path
type CommandBuilder struct {
	path    []string
	output  io.Writer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewCommandBuilder creates a CommandBuilder
func NewCommandBuilder(opts Options) *CommandBuilder {
	return &CommandBuilder{
		path:    opts.Path,
		output:  opts.Output,
		timeout: opts.Timeout,
		logger:  logging.GetLogger("builder"),
	}
}

// Build runs every install command; the first non-zero exit fails the
// build with ErrBuildFailed. The returned path is where the formula says
// the artifact is; the caller verifies it.
func (b *CommandBuilder) Build(ctx context.Context, ws Workspace) (string, error) {
	f := ws.Formula
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	exp := f.NewExpander(formula.Vars{
		BuildPath: ws.BuildPath,
		StagePath: ws.StagePath,
		Prefix:    ws.Prefix,
		Bin:       filepath.Join(ws.Prefix, "bin", f.BinName()),
	})

	env := append(os.Environ(), "PATH="+deps.SearchPath(b.path))
	env = append(env, ws.Env...)

	for i, raw := range f.Install.Commands {
		argv := exp.Argv(raw)
		if err := b.run(ctx, ws.StagePath, env, argv); err != nil {
			if fe, ok := errors.AsFormularyError(err); ok {
				fe.WithDetail("formula", f.Name).WithDetail("step", i+1)
			}
			return "", err
		}
	}

	return filepath.Join(ws.StagePath, filepath.FromSlash(f.Install.Artifact)), nil
}

func (b *CommandBuilder) run(ctx context.Context, dir string, env, argv []string) error {
	name := argv[0]
	if strings.ContainsRune(name, os.PathSeparator) && !filepath.IsAbs(name) {
		name = filepath.Join(dir, name)
	}
	bin, err := deps.LookPath(name, b.path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBuildFailed, "command %s not found", argv[0]).
			WithDetail("command", argv)
	}

	b.logger.Info().
		Strs("command", argv).
		Str("dir", dir).
		Msg("Running build command")

	cmd := exec.CommandContext(ctx, bin, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Dir = dir
	cmd.Env = env
	cmd.WaitDelay = waitDelay

	stdout := logging.NewLineWriter(b.logger, "stdout")
	stderr := logging.NewLineWriter(b.logger, "stderr")
	tail := &tailBuffer{max: 4096}
	cmd.Stdout = b.tee(stdout, tail)
	cmd.Stderr = b.tee(stderr, tail)

	start := time.Now()
	err = cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		b.logger.Error().
			Err(err).
			Strs("command", argv).
			Int("exit_code", exitCode).
			Msg("Build command failed")

		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return errors.Wrapf(err, errors.ErrBuildFailed, "%s failed", strings.Join(argv, " ")).
			WithDetail("command", argv).
			WithDetail("exit_code", exitCode).
			WithDetail("output", tail.String())
	}

	b.logger.Debug().
		Strs("command", argv).
		Dur("duration", time.Since(start)).
		Msg("Build command succeeded")
	return nil
}

func (b *CommandBuilder) tee(w ...io.Writer) io.Writer {
	if b.output != nil {
		w = append(w, b.output)
	}
	return io.MultiWriter(w...)
}

// tailBuffer keeps the last max bytes written. stdout and stderr copy
// into it from separate goroutines.
type tailBuffer struct {
	max int
	mu  sync.Mutex
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
