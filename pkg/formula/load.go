package formula

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/logging"
)

// Format is a formula file syntax
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// Extensions lists recognised formula file extensions in lookup order
var Extensions = []string{".toml", ".yaml", ".yml", ".hcl"}

// FormatFromPath picks the syntax from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", errors.Newf(errors.ErrFormulaParse, "unsupported formula file %s (expected one of %s)", path, strings.Join(Extensions, ", "))
	}
}

// LoadFile reads, parses and validates a formula file
func LoadFile(path string) (*Formula, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrFormulaNotFound, "formula file %s", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFormulaParse, "failed to read %s", path)
	}
	return Parse(data, format, path)
}

// Parse decodes and validates a formula. source names the origin for errors.
func Parse(data []byte, format Format, source string) (*Formula, error) {
	logger := logging.GetLogger("formula.load")

	var (
		f   *Formula
		err error
	)
	switch format {
	case FormatTOML:
		f, err = parseTOML(data)
	case FormatYAML:
		f, err = parseYAML(data)
	case FormatHCL:
		f, err = parseHCL(data, source)
	default:
		return nil, errors.Newf(errors.ErrFormulaParse, "unknown formula format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFormulaParse, "failed to parse %s", source).
			WithDetail("format", string(format))
	}

	f.File = source
	if err := f.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("formula", f.Name).
		Str("version", f.PkgVersion()).
		Str("format", string(format)).
		Str("source", source).
		Msg("Loaded formula")

	return f, nil
}

func parseTOML(data []byte) (*Formula, error) {
	var f Formula
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func parseYAML(data []byte) (*Formula, error) {
	var f Formula
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// MarshalTOML renders a formula in the canonical TOML syntax
func MarshalTOML(f *Formula) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(f); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to encode formula %s", f.Name)
	}
	return buf.Bytes(), nil
}
