// Package npm installs the production dependencies of a prepared package tree,
// using either a configured npm command or the npm shipped with the bundled runtime.
package npm
