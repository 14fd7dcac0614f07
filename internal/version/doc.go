// Package version exposes build metadata of fw-merge.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags (see the mage Build target) and default to placeholder values
// for local builds. Short is recorded in merge manifests; Full is printed by
// the version subcommand.
package version
