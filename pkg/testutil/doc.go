// Package testutil provides fixtures and fakes for testing formulary
// components.
//
// Key components:
//   - TestEnvironment: isolated root, cellar, cache and config dirs under
//     t.TempDir(), with the XDG variables pointed at them
//   - FakeBuilder: a builder.Builder that writes the artifact without
//     running any command, or fails like a build would
//   - FakeFetcher: a fetch.Fetcher that copies inline files into a workspace
//     and counts its calls
//   - Lookup: a deps.LookupFunc backed by a map
//
// All test data is defined inline.
package testutil
