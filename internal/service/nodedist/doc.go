// Package nodedist installs the bundled Node.js runtime for a target platform.
//
// It downloads the official distribution archive and its SHASUMS256.txt from
// a mirror, verifies the archive, extracts it and swaps it into the runtime
// directory that the launcher executes.
package nodedist
