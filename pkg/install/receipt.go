package install

import (
	"bytes"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/formulary/pkg/errors"
)

// Receipt records one successful install. It is written as
// INSTALL_RECEIPT.toml at the top of the keg.
type Receipt struct {
	ID          string    `toml:"id"`
	Name        string    `toml:"name"`
	Version     string    `toml:"version"`
	PkgVersion  string    `toml:"pkg_version"`
	SourceURL   string    `toml:"source_url"`
	Ref         string    `toml:"ref"`
	Commit      string    `toml:"commit,omitempty"`
	Digest      string    `toml:"digest,omitempty"`
	BinName     string    `toml:"bin_name"`
	Binary      string    `toml:"binary"`
	Checksum    string    `toml:"checksum,omitempty"`
	FormulaFile string    `toml:"formula_file,omitempty"`
	Head        bool      `toml:"head"`
	InstalledAt time.Time `toml:"installed_at"`

	// Keg is the directory the receipt was read from.
	Keg string `toml:"-"`
}

func writeReceipt(path string, r *Receipt) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode install receipt")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "failed to write install receipt %s", path)
	}
	return nil
}

// ReadReceipt loads a receipt file
func ReadReceipt(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrNotInstalled, "no install receipt at %s", path)
		}
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read install receipt %s", path)
	}
	var r Receipt
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "corrupt install receipt %s", path)
	}
	return &r, nil
}
