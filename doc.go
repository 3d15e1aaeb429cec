// Package asar packs a directory tree into a single .asar archive and
// extracts it again.
//
// An archive consists of a header followed by a content region:
//   - Header: an 8-byte pickled size field and a pickled JSON description of
//     the directory tree, with each file's size and offset
//   - Content: the raw bytes of every packed file, concatenated in the order
//     the files were visited
//
// # Packing
//
//	err := asar.Pack(ctx, "./app", "app.asar",
//	    asar.PackWithSortedEntries(true),
//	    asar.PackWithLogger(logger),
//	)
//
// Symbolic links that point inside the source directory are stored as link
// entries. Links that point elsewhere are followed and packed as content.
//
// # Extracting
//
//	err := asar.Extract(ctx, "app.asar", "./out")
//
// Extraction runs in two phases. Directories and files are materialized
// first; symbolic link entries are queued and then resolved by copying their
// targets, so no OS-level links are created. Files marked unpacked are
// copied from the sibling "app.asar.unpacked" directory.
package asar
