// Package version exposes build metadata for the project.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Version is derived from the vendored package.json with
// FromManifest, which keeps the distributed version in lockstep with the
// vendored Vercel CLI.
package version
