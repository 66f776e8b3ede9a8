package fetch

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// DirFetcher copies a local source tree into the workspace. The .git
// directory is skipped. The ref is ignored.
type DirFetcher struct {
	buildDir string
	logger   zerolog.Logger
}

// NewDirFetcher creates a DirFetcher placing workspaces under buildDir
func NewDirFetcher(buildDir string) *DirFetcher {
	return &DirFetcher{
		buildDir: buildDir,
		logger:   logging.GetLogger("fetch.dir"),
	}
}

// Fetch copies req.URL (a path or file:// URL) into the workspace
func (d *DirFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	src := strings.TrimPrefix(req.URL, "file://")
	info, err := os.Stat(src)
	if err != nil {
		return nil, fetchError(err, req, "source directory %s", src)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrFetchFailed, "source %s is not a directory", src).
			WithDetail("url", req.URL)
	}

	ws, cleanup, err := prepareWorkspace(d.buildDir, req)
	if err != nil {
		return nil, err
	}

	if err := copyTree(ctx, src, ws); err != nil {
		cleanup()
		return nil, fetchError(err, req, "failed to copy %s", src)
	}

	digest, err := Digest(ws)
	if err != nil {
		cleanup()
		return nil, fetchError(err, req, "failed to digest workspace %s", ws)
	}

	d.logger.Info().
		Str("source", src).
		Str("workspace", ws).
		Msg("Copied source")

	return &Result{
		Workspace: ws,
		URL:       req.URL,
		Ref:       req.Ref,
		Digest:    digest,
	}, nil
}

func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			// sockets, devices and pipes are not part of a source tree
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
