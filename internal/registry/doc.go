// Package registry talks to an npm registry over HTTP: it resolves version
// metadata and downloads package tarballs.
package registry
