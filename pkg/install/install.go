// Package install implements the install hook: the fetched tree is staged
// under a scratch build path, built through a builder.Builder, and the one
// resulting binary is placed at <prefix>/bin/<bin_name>. A failed install
// leaves nothing under the package prefix.
//
// The package also owns the keg bookkeeping built on top of that layout:
// install receipts, bin links, listing and uninstalling.
package install

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/builder"
	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/formula"
	"github.com/arthur-debert/formulary/pkg/internal/hashutil"
	"github.com/arthur-debert/formulary/pkg/logging"
	"github.com/arthur-debert/formulary/pkg/paths"
)

// Source is a fetched workspace handed to the install hook
type Source struct {
	Workspace string
	URL       string
	Ref       string
	Commit    string
	Digest    string
	Head      bool
}

// Options configures one install
type Options struct {
	// Force replaces an existing keg of the same package version once the
	// new build has succeeded.
	Force bool
	// KeepBuild leaves the build path on disk for inspection.
	KeepBuild bool
}

// Result describes a completed install
type Result struct {
	Keg       string
	Binary    string
	BuildPath string
	Receipt   *Receipt
}

// Installer places built binaries into kegs
type Installer struct {
	paths   paths.Paths
	builder builder.Builder
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates an Installer
func New(p paths.Paths, b builder.Builder) *Installer {
	return &Installer{
		paths:   p,
		builder: b,
		logger:  logging.GetLogger("install"),
		now:     time.Now,
	}
}

// Install stages src, builds it and installs the artifact. The workspace
// is consumed: it is moved into the build path.
func (i *Installer) Install(ctx context.Context, f *formula.Formula, src Source, opts Options) (*Result, error) {
	done := logging.LogOperationStart(i.logger, "install")
	defer done()

	if err := f.Validate(); err != nil {
		return nil, err
	}
	pkgVersion := f.PkgVersion()
	keg := i.paths.KegPath(f.Name, pkgVersion)
	if _, err := os.Stat(keg); err == nil && !opts.Force {
		return nil, errors.Newf(errors.ErrAlreadyInstalled, "%s %s is already installed", f.Name, pkgVersion).
			WithDetail("keg", keg)
	}

	id := uuid.New().String()
	buildPath := filepath.Join(i.paths.BuildDir(), f.Name+"-"+id[:8])
	stagePath := filepath.Join(buildPath, filepath.FromSlash(f.Install.StageDir))
	binPath := filepath.Join(keg, paths.BinDirName, f.BinName())

	if !opts.KeepBuild {
		defer func() {
			_ = os.RemoveAll(buildPath)
		}()
	}
	if err := stage(src.Workspace, stagePath); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInstallFailed, "failed to stage %s", src.Workspace).
			WithDetail("formula", f.Name)
	}

	i.logger.Info().
		Str("formula", f.Name).
		Str("build_path", buildPath).
		Str("stage_path", stagePath).
		Msg("Staged source")

	exp := f.NewExpander(formula.Vars{
		BuildPath: buildPath,
		StagePath: stagePath,
		Prefix:    keg,
		Bin:       binPath,
	})
	artifact, err := i.builder.Build(ctx, builder.Workspace{
		Formula:   f,
		BuildPath: buildPath,
		StagePath: stagePath,
		Prefix:    keg,
		Env:       exp.Env(f.Install.Env),
	})
	if err != nil {
		if errors.GetErrorCode(err) == errors.ErrUnknown {
			err = errors.Wrapf(err, errors.ErrBuildFailed, "building %s failed", f.Name)
		}
		return nil, err
	}

	info, err := os.Stat(artifact)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.Newf(errors.ErrArtifactMissing, "build of %s did not produce %s", f.Name, f.Install.Artifact).
			WithDetail("formula", f.Name).
			WithDetail("artifact", artifact)
	}

	receipt := &Receipt{
		ID:          id,
		Name:        f.Name,
		Version:     f.Version,
		PkgVersion:  pkgVersion,
		SourceURL:   src.URL,
		Ref:         src.Ref,
		Commit:      src.Commit,
		Digest:      src.Digest,
		BinName:     f.BinName(),
		Binary:      binPath,
		FormulaFile: f.File,
		Head:        src.Head,
		InstalledAt: i.now().UTC().Truncate(time.Second),
		Keg:         keg,
	}
	if err := i.place(artifact, keg, receipt); err != nil {
		return nil, err
	}

	i.logger.Info().
		Str("formula", f.Name).
		Str("version", pkgVersion).
		Str("binary", binPath).
		Msg("Installed")

	return &Result{Keg: keg, Binary: binPath, BuildPath: buildPath, Receipt: receipt}, nil
}

// stage moves the workspace to stagePath, creating parents
func stage(workspace, stagePath string) error {
	info, err := os.Stat(workspace)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Newf(errors.ErrInvalidInput, "workspace %s is not a directory", workspace)
	}
	if err := os.MkdirAll(filepath.Dir(stagePath), 0755); err != nil {
		return err
	}
	return os.Rename(workspace, stagePath)
}

// place assembles the keg next to its final location and swaps it in.
// Until the final rename nothing exists at keg; a replaced keg is removed
// only after the new one is in place.
func (i *Installer) place(artifact, keg string, receipt *Receipt) error {
	rack := filepath.Dir(keg)
	rackExisted := dirExists(rack)

	tmpKeg := filepath.Join(rack, "."+filepath.Base(keg)+".tmp-"+receipt.ID[:8])
	fail := func(err error, format string, args ...interface{}) error {
		_ = os.RemoveAll(tmpKeg)
		if !rackExisted {
			_ = os.Remove(rack)
		}
		return errors.Wrapf(err, errors.ErrInstallFailed, format, args...).
			WithDetail("formula", receipt.Name).
			WithDetail("keg", keg)
	}

	binDir := filepath.Join(tmpKeg, paths.BinDirName)
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return fail(err, "failed to create %s", binDir)
	}
	placed := filepath.Join(binDir, receipt.BinName)
	if err := installFile(artifact, placed); err != nil {
		return fail(err, "failed to install %s", receipt.BinName)
	}
	sum, err := hashutil.FileChecksum(placed)
	if err != nil {
		return fail(err, "failed to checksum %s", receipt.BinName)
	}
	receipt.Checksum = sum
	if err := writeReceipt(filepath.Join(tmpKeg, paths.ReceiptFileName), receipt); err != nil {
		return fail(err, "failed to write receipt")
	}

	var old string
	if dirExists(keg) {
		old = filepath.Join(rack, "."+filepath.Base(keg)+".old-"+receipt.ID[:8])
		if err := os.Rename(keg, old); err != nil {
			return fail(err, "failed to move aside %s", keg)
		}
	}
	if err := os.Rename(tmpKeg, keg); err != nil {
		if old != "" {
			_ = os.Rename(old, keg)
		}
		return fail(err, "failed to move keg into place")
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			i.logger.Warn().Err(err).Str("path", old).Msg("Failed to remove replaced keg")
		}
	}
	return nil
}

// installFile copies src to a temporary name beside dst, marks it
// executable and renames it into place.
func installFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0755); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return err
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
