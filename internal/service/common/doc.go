// Package common holds helpers shared by several services.
//
// It swaps prepared directory trees into place with rollback and computes the
// release checksums recorded in release manifests.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
