// Package config defines the maintainer settings of the vendoring tool and
// provides helpers to load, validate and save them in YAML format.
//
// The launcher has no configuration: it resolves everything from fixed paths
// relative to its own executable.
package config
