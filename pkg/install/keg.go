package install

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/paths"
)

// Link points <root>/bin/<bin_name> at the keg binary. An existing link
// into the same rack is replaced; anything else is a conflict.
func (i *Installer) Link(r *Receipt) (string, error) {
	link := i.paths.LinkPath(r.BinName)
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrInstallFailed, "failed to create %s", filepath.Dir(link))
	}

	if info, err := os.Lstat(link); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return "", errors.Newf(errors.ErrLinkConflict, "%s exists and is not a formulary link", link).
				WithDetail("path", link)
		}
		target, _ := os.Readlink(link)
		if !within(target, i.paths.RackPath(r.Name)) {
			return "", errors.Newf(errors.ErrLinkConflict, "%s already links to %s", link, target).
				WithDetail("path", link).
				WithDetail("target", target)
		}
		if err := os.Remove(link); err != nil {
			return "", errors.Wrapf(err, errors.ErrInstallFailed, "failed to replace link %s", link)
		}
	}

	if err := os.Symlink(r.Binary, link); err != nil {
		return "", errors.Wrapf(err, errors.ErrInstallFailed, "failed to link %s", link)
	}

	i.logger.Info().
		Str("link", link).
		Str("target", r.Binary).
		Msg("Linked binary")
	return link, nil
}

// Unlink removes the bin link of r if it points into r's rack
func (i *Installer) Unlink(r *Receipt) error {
	link := i.paths.LinkPath(r.BinName)
	target, err := os.Readlink(link)
	if err != nil {
		return nil
	}
	if !within(target, i.paths.RackPath(r.Name)) {
		return nil
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to remove link %s", link)
	}
	i.logger.Debug().Str("link", link).Msg("Unlinked binary")
	return nil
}

// Uninstall removes every keg of name and its links
func (i *Installer) Uninstall(name string) ([]*Receipt, error) {
	rack := i.paths.RackPath(name)
	if !dirExists(rack) {
		return nil, errors.Newf(errors.ErrNotInstalled, "%s is not installed", name)
	}

	receipts, err := i.rackReceipts(name)
	if err != nil {
		return nil, err
	}
	for _, r := range receipts {
		if err := i.Unlink(r); err != nil {
			return nil, err
		}
	}
	if err := os.RemoveAll(rack); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInstallFailed, "failed to remove %s", rack)
	}

	i.logger.Info().
		Str("formula", name).
		Int("kegs", len(receipts)).
		Msg("Uninstalled")
	return receipts, nil
}

// List returns the receipts of every installed keg, sorted by name and
// install time.
func (i *Installer) List() ([]*Receipt, error) {
	entries, err := os.ReadDir(i.paths.Cellar())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read cellar %s", i.paths.Cellar())
	}

	var all []*Receipt
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		receipts, err := i.rackReceipts(e.Name())
		if err != nil {
			return nil, err
		}
		all = append(all, receipts...)
	}
	return all, nil
}

// Installed returns the most recently installed keg of name
func (i *Installer) Installed(name string) (*Receipt, error) {
	receipts, err := i.rackReceipts(name)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, errors.Newf(errors.ErrNotInstalled, "%s is not installed", name)
	}
	return receipts[len(receipts)-1], nil
}

// rackReceipts reads the receipts of one rack ordered by install time.
// Kegs without a receipt are skipped.
func (i *Installer) rackReceipts(name string) ([]*Receipt, error) {
	rack := i.paths.RackPath(name)
	entries, err := os.ReadDir(rack)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read %s", rack)
	}

	var receipts []*Receipt
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		keg := filepath.Join(rack, e.Name())
		r, err := ReadReceipt(filepath.Join(keg, paths.ReceiptFileName))
		if err != nil {
			if errors.IsErrorCode(err, errors.ErrNotInstalled) {
				i.logger.Warn().Str("keg", keg).Msg("Keg has no install receipt")
				continue
			}
			return nil, err
		}
		r.Keg = keg
		receipts = append(receipts, r)
	}

	sort.SliceStable(receipts, func(a, b int) bool {
		if receipts[a].InstalledAt.Equal(receipts[b].InstalledAt) {
			return receipts[a].PkgVersion < receipts[b].PkgVersion
		}
		return receipts[a].InstalledAt.Before(receipts[b].InstalledAt)
	})
	return receipts, nil
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
