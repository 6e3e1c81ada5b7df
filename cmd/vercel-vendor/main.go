// Command vercel-vendor maintains the vendored Vercel CLI: it refreshes the
// vendor bundle from npm, installs the bundled Node.js runtime, and builds and
// verifies release archives.
package main

import "github.com/oshokin/vercel-cli/cmd/vercel-vendor/cmd"

func main() {
	cmd.Execute()
}
