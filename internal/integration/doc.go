// Package integration exercises the vendoring tool and the launcher together
// against a local npm registry.
package integration
