package cli

// Command descriptions
const (
	MsgRootShort = "Build and install binaries from declarative formulas"
	MsgRootLong  = `formulary evaluates formula descriptors: small TOML, YAML or HCL files
that say where a project's source lives, which tools its build needs, how to
build it and how to check the result.

Every install runs four hooks strictly in order:

  resolve_dependencies  check required tools are on PATH
  fetch_source          fetch one revision into a fresh workspace
  install               build and place one executable in the keg
  test                  smoke-test the installed executable

The first failing hook aborts the run; nothing is left half installed.`

	MsgInstallShort   = "Fetch, build, install and test a formula"
	MsgInstallExample = `  # Install the bundled formula
  formulary install go-poll-explain-queries

  # Install from a formula file, tracking the default branch
  formulary install ./example.toml --head

  # Only check dependencies
  formulary install go-poll-explain-queries --dry-run

  # Write a JUnit report of the hooks
  formulary install go-poll-explain-queries --junit report.xml`

	MsgFetchShort      = "Fetch a formula's source into a workspace"
	MsgFetchLong       = "Fetch runs only the fetch_source hook and keeps the workspace, printing its commit and content digest."
	MsgTestShort       = "Run the test hook against an installed formula"
	MsgInfoShort       = "Describe a formula"
	MsgValidateShort   = "Load and validate formula files"
	MsgListShort       = "List installed formulas"
	MsgUninstallShort  = "Remove every installed version of a formula"
	MsgVersionShort    = "Print version information"
	MsgManShort        = "Generate man pages"
	MsgConfigShort     = "Print the built-in default configuration"
	MsgCompletionShort = "Generate shell completion script"
)

// Flag descriptions
const (
	MsgFlagVerbose       = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig        = "Config file (default $XDG_CONFIG_HOME/formulary/config.toml)"
	MsgFlagFormat        = "Output format: auto, term, text or json"
	MsgFlagHead          = "Use the head URL and its default branch"
	MsgFlagForce         = "Replace an installed keg of the same version"
	MsgFlagNoLink        = "Do not link the binary into <root>/bin"
	MsgFlagSkipTest      = "Report the test hook as skipped"
	MsgFlagKeepWorkspace = "Keep the fetched workspace and build directory"
	MsgFlagDryRun        = "Only resolve dependencies"
	MsgFlagJUnit         = "Write a JUnit XML report of the hooks to FILE"
	MsgFlagPin           = "Resolve the ref to a commit before fetching"
	MsgFlagDest          = "Fetch into DIR, which must be empty or absent"
	MsgFlagManDir        = "Write one page per command into DIR instead of stdout"
)

// Messages
const (
	MsgNoCommand = "no command specified"
)
