// Package nav models the platform navigation tree and synthesizes it from
// the materialized content tree.
//
// # Data model
//
// Navigation mirrors the platform schema as tagged variants: a document root
// holds tabs, groups or a raw page list; groups hold page strings or nested
// groups. An extension field, autogenerate, marks a node whose pages this
// tool derives from a folder instead of the author listing them by hand.
//
// # Synthesis
//
// The Synthesizer walks an authored tree and replaces every directive node in
// place. A directive's folder is resolved under the materialized output root,
// first below the current path prefix and then without it; a folder that is
// missing in both places yields an empty node rather than a failed run. When
// the resolved folder carries its own nested configuration document, that
// document's navigation is expanded recursively with the folder path as the
// new prefix and merged into the host tree (single top-level groups lift in
// place, several are concatenated under the requesting node). Plain folders
// are listed: readme/index pages first, then cached ordering hints, then
// alphabetical, with subdirectories becoming nested groups.
//
// Synthesis reads only the materialized tree, which guarantees a page appears
// in navigation exactly when it was materialized.
package nav
