// Package launcher runs the vendored Vercel CLI with the bundled Node.js runtime.
//
// It resolves the runtime executable and the entry script from fixed locations
// relative to the install root, refuses to run when either is missing, and
// otherwise spawns the runtime with the entry script followed by the caller's
// arguments. Arguments, environment and standard streams are passed through
// untouched and the child's exit status is returned verbatim.
package launcher
