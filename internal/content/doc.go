// Package content mirrors the source tree into the materialized output tree.
//
// The walk follows symlinks transparently: a linked directory is traversed as
// if it were physically present and a linked file materializes as a regular
// file, so the output is byte-identical whether sources are links or real
// files. Markup files are renamed to the target extension and run through the
// transform chain (metadata normalization, link rewriting, optional history
// annotation); everything else is byte-copied.
//
// Every destination file's mtime is set to its source's mtime after writing,
// and a file whose destination already carries the source mtime is skipped
// without being read. That lockstep is the whole incremental story: ordering
// hints for skipped files come from the position cache instead of a re-read.
package content
