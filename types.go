package asar

import (
	"github.com/meigma/asar/internal/archive"
	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/pathutil"
)

// Node is one of *Directory, *File or *Symlink.
type Node = archive.Node

// Entry is a named child of a Directory.
type Entry = archive.Entry

// Directory is an ordered mapping of child names to nodes.
type Directory = archive.Directory

// File describes a regular file in the archive.
type File = archive.File

// Symlink is a link to another entry, relative to the archive root.
type Symlink = archive.Symlink

// Header is a parsed archive header.
type Header = header.Header

// WalkFunc is called for every node visited by Walk.
type WalkFunc = archive.WalkFunc

// ArchiveExt is the required extension of archive files.
const ArchiveExt = pathutil.ArchiveExt

// UnpackedSuffix names the side-channel directory next to an archive.
const UnpackedSuffix = pathutil.UnpackedSuffix

// NewDirectory returns an empty directory.
var NewDirectory = archive.NewDirectory

// Walk visits every node below root in pre-order, in stored order.
var Walk = archive.Walk

// Find resolves a slash-separated path below root without following symlinks.
var Find = archive.Find
