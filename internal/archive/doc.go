// Package archive extracts untrusted tar.gz and zip archives into a directory
// and writes tar.gz release archives.
//
// Extraction never writes outside the destination: absolute names, "." and
// ".." components, components padded with whitespace and hard links are
// skipped, and every target is resolved with securejoin. Symbolic links are
// skipped unless explicitly allowed, and allowed links must stay inside the
// destination.
package archive
