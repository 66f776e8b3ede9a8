// Package paths provides centralized path handling for formulary.
//
// All on-disk locations used by the installer are derived here so the rest
// of the codebase never assembles a keg or cache path by hand.
//
// # Layout
//
//   - Root:   $XDG_DATA_HOME/formulary (install root)
//   - Cellar: <root>/Cellar, one rack per formula, one keg per package version
//   - Bin:    <root>/bin, symlinks to keg binaries
//   - Cache:  $XDG_CACHE_HOME/formulary (git caches, scratch build paths)
//   - Config: $XDG_CONFIG_HOME/formulary (config.toml, user formulas)
//
// A keg is the package prefix of one installed version:
//
//	<cellar>/<name>/<pkg_version>/bin/<binary>
//	<cellar>/<name>/<pkg_version>/INSTALL_RECEIPT.toml
//
// # Environment Variables
//
//   - FORMULARY_CONFIG_DIR: Override the config directory
//
// Root, cellar and cache are configured through pkg/config; Options values
// that are empty fall back to the XDG defaults above.
package paths
