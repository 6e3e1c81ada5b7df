// Package packager builds release archives of the launcher, the vendor bundle
// and the bundled runtime, and verifies installed trees against the release
// manifest recorded inside them.
package packager
