// Package bundle describes the vendor bundle: the checked-in copy of the
// upstream npm package that the launcher runs.
//
// It owns the fixed relative layout shared by the launcher and the maintainer
// tooling, reads the bundle's version record and sanitizes package.json before
// dependencies are installed.
package bundle
