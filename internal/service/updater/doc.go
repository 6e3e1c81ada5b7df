// Package updater refreshes the vendor bundle from the npm registry.
//
// An update resolves registry metadata, downloads the package tarball, checks
// it against the published digest, extracts it safely, installs production
// dependencies and swaps the prepared tree into the vendor directory. Any
// failure before the swap leaves the existing bundle untouched. Check compares
// the vendored version with the latest release and optionally applies it.
package updater
