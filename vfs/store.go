// Package vfs is the in-memory node store: a rooted tree of files and
// directories kept in a flat arena keyed by inode id.
//
// Store is not safe for concurrent use. The kernel serialises every call.
package vfs

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/idgen"
)

// Separator splits path segments
const Separator = "/"

type Store struct {
	nodes map[vkernel.Ino]*Node // arena; parent/children fields index into it
	ids   *idgen.Allocator[vkernel.Ino]
}

// NewStore returns a Store holding only the root directory
func NewStore() *Store {
	root := newNode(vkernel.RootIno, vkernel.RootIno, "", vkernel.KindDirectory)
	return &Store{
		nodes: map[vkernel.Ino]*Node{vkernel.RootIno: root},
		ids:   idgen.New[vkernel.Ino](vkernel.RootIno+1, math.MaxUint64),
	}
}

// Len returns the number of nodes including the root
func (s *Store) Len() int {
	return len(s.nodes)
}

// splitPath drops empty segments so leading, trailing and doubled
// separators are all tolerated
func splitPath(p string) []string {
	raw := strings.Split(p, Separator)
	segs := raw[:0]
	for _, seg := range raw {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// walk follows segs from the root. Every node that is descended through must
// be a directory; the last node may be of either kind.
func (s *Store) walk(op, p string, segs []string) (*Node, error) {
	cur := s.nodes[vkernel.RootIno]
	for _, seg := range segs {
		if !cur.isDir() {
			return nil, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrNotADirectory}
		}
		id, ok := cur.children[seg]
		if !ok {
			return nil, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrPathNotFound}
		}
		cur = s.nodes[id]
	}
	return cur, nil
}

func (s *Store) node(op string, id vkernel.Ino) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, &vkernel.PathError{Op: op, Path: "#" + strconv.FormatUint(uint64(id), 10), Err: vkernel.ErrPathNotFound}
	}
	return n, nil
}

func (s *Store) file(op string, id vkernel.Ino) (*Node, error) {
	n, err := s.node(op, id)
	if err != nil {
		return nil, err
	}
	if n.isDir() {
		return nil, &vkernel.PathError{Op: op, Path: s.pathOf(n), Err: vkernel.ErrNotAFile}
	}
	return n, nil
}

// Resolve returns the id of the node at p. An empty path or "/" is the root.
func (s *Store) Resolve(p string) (vkernel.Ino, error) {
	n, err := s.walk("resolve", p, splitPath(p))
	if err != nil {
		return 0, err
	}
	return n.id, nil
}

// Exists probes p without side effects
func (s *Store) Exists(p string) vkernel.Existence {
	n, err := s.walk("exists", p, splitPath(p))
	if err != nil {
		return vkernel.Absent
	}
	return vkernel.ExistenceOf(n.kind)
}

// Create adds a new empty node of the given kind at p. All but the final
// segment must resolve to an existing directory. The final segment is the
// text after the last separator, so "/" and "/a/" are rejected rather than
// silently trimmed.
func (s *Store) Create(p string, kind vkernel.NodeKind) (vkernel.Ino, error) {
	const op = "create"
	dir, name := p, p
	if i := strings.LastIndex(p, Separator); i >= 0 {
		dir, name = p[:i], p[i+1:]
	} else {
		dir = ""
	}
	if !validName(name) {
		return 0, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrInvalidName}
	}

	parent, err := s.walk(op, p, splitPath(dir))
	if err != nil {
		return 0, err
	}
	if !parent.isDir() {
		return 0, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrNotADirectory}
	}
	if _, ok := parent.children[name]; ok {
		return 0, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrDuplicateName}
	}

	id, ok := s.ids.Next()
	if !ok {
		// 2^64 inodes; unreachable in a process lifetime
		panic("vfs: inode ids exhausted")
	}
	s.nodes[id] = newNode(id, parent.id, name, kind)
	parent.children[name] = id
	return id, nil
}

// MkdirAll creates every missing directory along p, like `mkdir -p`, and
// returns the id of the last one. Existing directories are left untouched.
func (s *Store) MkdirAll(p string) (vkernel.Ino, error) {
	const op = "mkdir"
	segs := splitPath(p)
	// a rejected name must not leave its ancestors behind
	for _, seg := range segs {
		if !validName(seg) {
			return 0, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrInvalidName}
		}
	}
	cur := s.nodes[vkernel.RootIno]
	for _, seg := range segs {
		if !cur.isDir() {
			return 0, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrNotADirectory}
		}
		if id, ok := cur.children[seg]; ok {
			cur = s.nodes[id]
			continue
		}
		id, ok := s.ids.Next()
		if !ok {
			panic("vfs: inode ids exhausted")
		}
		n := newNode(id, cur.id, seg, vkernel.KindDirectory)
		s.nodes[id] = n
		cur.children[seg] = id
		cur = n
	}
	if !cur.isDir() {
		return 0, &vkernel.PathError{Op: op, Path: p, Err: vkernel.ErrNotADirectory}
	}
	return cur.id, nil
}

// Kind returns the kind of node id
func (s *Store) Kind(id vkernel.Ino) (vkernel.NodeKind, error) {
	n, err := s.node("stat", id)
	if err != nil {
		return 0, err
	}
	return n.kind, nil
}

// Read returns a copy of the full content of a file node
func (s *Store) Read(id vkernel.Ino) ([]byte, error) {
	n, err := s.file("read", id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(n.content), nil
}

// ReadAt returns a copy of up to size bytes starting at off. Reading at or
// past the end returns an empty slice.
func (s *Store) ReadAt(id vkernel.Ino, off, size int) ([]byte, error) {
	n, err := s.file("read", id)
	if err != nil {
		return nil, err
	}
	if off < 0 || size < 0 {
		return nil, &vkernel.PathError{Op: "read", Path: s.pathOf(n), Err: vkernel.ErrInvalidArgument}
	}
	if off >= len(n.content) {
		return []byte{}, nil
	}
	end := min(off+size, len(n.content))
	return slices.Clone(n.content[off:end]), nil
}

// Write replaces the content of a file node, or appends to it
func (s *Store) Write(id vkernel.Ino, data []byte, appendData bool) error {
	n, err := s.file("write", id)
	if err != nil {
		return err
	}
	if appendData {
		n.content = append(n.content, data...)
	} else {
		n.content = slices.Clone(data)
	}
	return nil
}

// List returns the sorted child names of the directory at p. A missing path
// fails with ErrPathNotFound and a file with ErrNotADirectory, so an empty
// result always means an empty directory.
func (s *Store) List(p string) ([]string, error) {
	n, err := s.walk("list", p, splitPath(p))
	if err != nil {
		return nil, err
	}
	if !n.isDir() {
		return nil, &vkernel.PathError{Op: "list", Path: p, Err: vkernel.ErrNotADirectory}
	}
	names := slices.AppendSeq(make([]string, 0, len(n.children)), maps.Keys(n.children))
	slices.Sort(names)
	return names, nil
}

// Stat returns a snapshot of node id
func (s *Store) Stat(id vkernel.Ino) (vkernel.NodeInfo, error) {
	n, err := s.node("stat", id)
	if err != nil {
		return vkernel.NodeInfo{}, err
	}
	return vkernel.NodeInfo{
		ID:     n.id,
		Kind:   n.kind,
		Name:   n.name,
		Size:   len(n.content),
		Parent: n.parent,
		Path:   s.pathOf(n),
	}, nil
}

// Path returns the absolute path of node id, "/" for the root
func (s *Store) Path(id vkernel.Ino) (string, error) {
	n, err := s.node("path", id)
	if err != nil {
		return "", err
	}
	return s.pathOf(n), nil
}

func (s *Store) pathOf(n *Node) string {
	if n.isRoot() {
		return Separator
	}
	pPath := s.pathOf(s.nodes[n.parent])
	if pPath == Separator {
		return pPath + n.name
	}
	return pPath + Separator + n.name
}
