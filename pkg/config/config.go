package config

import (
	"fmt"
	"time"

	"github.com/arthur-debert/formulary/pkg/paths"
)

// Config is the fully merged application configuration
type Config struct {
	Paths  Paths  `koanf:"paths"`
	Fetch  Fetch  `koanf:"fetch"`
	Build  Build  `koanf:"build"`
	Test   Test   `koanf:"test"`
	Output Output `koanf:"output"`
}

// Paths overrides the XDG-derived install locations
type Paths struct {
	Root        string   `koanf:"root"`
	Cellar      string   `koanf:"cellar"`
	Cache       string   `koanf:"cache"`
	FormulaDirs []string `koanf:"formula_dirs"`
}

// Fetch configures source retrieval
type Fetch struct {
	Git         string `koanf:"git"`
	Depth       int    `koanf:"depth"`
	Pin         bool   `koanf:"pin"`
	GitHubToken string `koanf:"github_token"`
}

// Build configures the install hook
type Build struct {
	KeepWorkspace bool          `koanf:"keep_workspace"`
	Timeout       time.Duration `koanf:"timeout"`
	Path          []string      `koanf:"path"`
}

// Test configures the smoke test hook
type Test struct {
	Strict bool `koanf:"strict"`
}

// Output configures terminal rendering
type Output struct {
	Format string `koanf:"format"`
}

// PathOptions converts the paths section for paths.New
func (c *Config) PathOptions() paths.Options {
	return paths.Options{
		Root:        c.Paths.Root,
		Cellar:      c.Paths.Cellar,
		Cache:       c.Paths.Cache,
		FormulaDirs: c.Paths.FormulaDirs,
	}
}

// Validate checks values koanf cannot type-check
func (c *Config) Validate() error {
	if c.Fetch.Git == "" {
		return fmt.Errorf("fetch.git must not be empty")
	}
	if c.Fetch.Depth < 0 {
		return fmt.Errorf("fetch.depth must be >= 0 (0 = full history), got %d", c.Fetch.Depth)
	}
	if c.Build.Timeout < 0 {
		return fmt.Errorf("build.timeout must be >= 0, got %s", c.Build.Timeout)
	}
	switch c.Output.Format {
	case "auto", "term", "text", "json":
	default:
		return fmt.Errorf("output.format must be one of auto, term, text, json; got %q", c.Output.Format)
	}
	return nil
}
