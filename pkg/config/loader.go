package config

import (
	_ "embed"
	"errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	ferrors "github.com/arthur-debert/formulary/pkg/errors"
	"github.com/arthur-debert/formulary/pkg/logging"
	"github.com/arthur-debert/formulary/pkg/paths"
)

// EnvPrefix is the prefix of environment variables mapped onto config keys
const EnvPrefix = "FORMULARY_"

//go:embed embedded/defaults.toml
var defaultConfig []byte

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// LoadOptions selects the user config file.
type LoadOptions struct {
	// ConfigFile is an explicit config path. When empty the default
	// $XDG_CONFIG_HOME/formulary/config.toml is used if it exists.
	ConfigFile string
}

// Load merges defaults, the user config file and environment variables.
// An explicit ConfigFile that does not exist is an error; a missing
// default file is not.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, ferrors.Wrap(err, ferrors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User config file
	configPath := opts.ConfigFile
	explicit := configPath != ""
	if !explicit {
		configPath = paths.ConfigFilePath()
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, ferrors.Wrapf(err, ferrors.ErrConfigLoad, "failed to load config from %s", configPath)
		}
		logger.Debug().Str("path", configPath).Msg("Loaded user config")
	} else if explicit {
		return nil, ferrors.Wrapf(err, ferrors.ErrConfigLoad, "config file %s", configPath)
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, ferrors.Wrap(err, ferrors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, ferrors.Wrap(err, ferrors.ErrConfigLoad, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, ferrors.Wrap(err, ferrors.ErrConfigValid, "invalid configuration")
	}

	return &cfg, nil
}

// Default returns the embedded defaults without reading files or env.
func Default() *Config {
	k := koanf.New(".")
	var cfg Config
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		panic("config: embedded defaults are invalid: " + err.Error())
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		panic("config: embedded defaults are invalid: " + err.Error())
	}
	return &cfg
}

// envKey maps FORMULARY_BUILD__KEEP_WORKSPACE to build.keep_workspace
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// DefaultsContent returns the embedded defaults file, used by `config` output
func DefaultsContent() string {
	return string(defaultConfig)
}
