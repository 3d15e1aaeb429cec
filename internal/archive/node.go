// Package archive defines the directory tree stored in an asar header.
//
// A tree is built from three node kinds: Directory, File and Symlink. The
// root of every archive is a Directory whose own name is implicit.
// Directories keep their entries in insertion order, which is also the order
// they are serialized and extracted in.
package archive

import "strings"

// Node is one of *Directory, *File or *Symlink.
type Node interface {
	isNode()
}

// Entry is a named child of a Directory.
type Entry struct {
	Name string
	Node Node
}

// Directory is an ordered mapping of child names to nodes.
type Directory struct {
	Entries []Entry
}

// File describes a regular file.
type File struct {
	// Size is the file length in bytes.
	Size uint64

	// Offset is the position of the file's bytes within the content region,
	// not within the archive file. It is meaningless when Unpacked is set.
	Offset uint64

	// Executable is set when the file starts with the "MZ" marker.
	Executable bool

	// Unpacked is set when the file lives in the side-channel directory
	// instead of the content region.
	Unpacked bool
}

// Symlink is a link to another entry.
type Symlink struct {
	// Link is the slash-separated target path relative to the archive root.
	Link string
}

func (*Directory) isNode() {}
func (*File) isNode()      {}
func (*Symlink) isNode()   {}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// Add inserts n under name. An existing entry with the same name is replaced
// in place and keeps its position.
func (d *Directory) Add(name string, n Node) {
	for i := range d.Entries {
		if d.Entries[i].Name == name {
			d.Entries[i].Node = n
			return
		}
	}
	d.Entries = append(d.Entries, Entry{Name: name, Node: n})
}

// Lookup returns the child named name.
func (d *Directory) Lookup(name string) (Node, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e.Node, true
		}
	}
	return nil, false
}

// Len returns the number of direct children.
func (d *Directory) Len() int {
	return len(d.Entries)
}

// Find resolves a slash-separated path below d. The empty path and "."
// resolve to d itself. Symlinks are not followed.
func Find(d *Directory, path string) (Node, bool) {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return d, true
	}

	var cur Node = d
	for _, part := range strings.Split(path, "/") {
		dir, ok := cur.(*Directory)
		if !ok {
			return nil, false
		}
		if cur, ok = dir.Lookup(part); !ok {
			return nil, false
		}
	}
	return cur, true
}

// WalkFunc is called for every node visited by Walk. path is the
// slash-separated path of the node relative to the root.
type WalkFunc func(path string, n Node) error

// Walk visits every node below root in pre-order, in stored order. The root
// itself is not visited. Walk stops at the first error returned by fn.
func Walk(root *Directory, fn WalkFunc) error {
	return walk(root, "", fn)
}

func walk(d *Directory, prefix string, fn WalkFunc) error {
	for _, e := range d.Entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		if err := fn(path, e.Node); err != nil {
			return err
		}
		if sub, ok := e.Node.(*Directory); ok {
			if err := walk(sub, path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
