package version

import "fmt"

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/arthur-debert/formulary/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/arthur-debert/formulary/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/arthur-debert/formulary/internal/version.Date={{.Date}}
)

// Info is the multi-line block printed by `formulary version`
func Info() string {
	return fmt.Sprintf("formulary version %s\n  commit: %s\n  built:  %s\n", Version, Commit, Date)
}
