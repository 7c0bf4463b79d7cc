// Package fdtable maps open descriptor handles to nodes, cursors and access
// modes. Table is not safe for concurrent use; the kernel serialises calls.
package fdtable

import (
	"maps"
	"slices"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/idgen"
)

// NodeStore is the subset of the node store a Table needs
type NodeStore interface {
	Kind(id vkernel.Ino) (vkernel.NodeKind, error)
	ReadAt(id vkernel.Ino, off, size int) ([]byte, error)
	Write(id vkernel.Ino, data []byte, appendData bool) error
}

// Descriptor is an open session against a file node
type Descriptor struct {
	Node   vkernel.Ino
	Offset int // advanced by reads only
	Mode   vkernel.AccessMode
}

type Table struct {
	store NodeStore
	open  map[vkernel.FD]*Descriptor
	ids   *idgen.Allocator[vkernel.FD]
}

// New returns an empty Table handing out descriptors from first to last
func New(store NodeStore, first, last vkernel.FD) *Table {
	return &Table{
		store: store,
		open:  make(map[vkernel.FD]*Descriptor),
		ids:   idgen.New(first, last),
	}
}

// Open allocates a new descriptor for file node id. Opening in ModeWrite
// truncates the file. Handles are never reused.
func (t *Table) Open(id vkernel.Ino, mode vkernel.AccessMode) (vkernel.FD, error) {
	kind, err := t.store.Kind(id)
	if err != nil {
		return -1, err
	}
	if kind != vkernel.KindFile {
		return -1, &vkernel.FDError{Op: "open", FD: -1, Err: vkernel.ErrNotAFile}
	}
	fd, ok := t.ids.Next()
	if !ok {
		return -1, &vkernel.FDError{Op: "open", FD: -1, Err: vkernel.ErrDescriptorsExhausted}
	}
	if mode == vkernel.ModeWrite {
		if err := t.store.Write(id, nil, false); err != nil {
			return -1, err
		}
	}
	t.open[fd] = &Descriptor{Node: id, Mode: mode}
	return fd, nil
}

func (t *Table) lookup(op string, fd vkernel.FD) (*Descriptor, error) {
	d, ok := t.open[fd]
	if !ok {
		return nil, &vkernel.FDError{Op: op, FD: fd, Err: vkernel.ErrUnknownDescriptor}
	}
	return d, nil
}

// Get returns a copy of the descriptor state for fd
func (t *Table) Get(fd vkernel.FD) (Descriptor, error) {
	d, err := t.lookup("get", fd)
	if err != nil {
		return Descriptor{}, err
	}
	return *d, nil
}

// Read returns up to maxBytes from the descriptor's offset and advances the
// offset by the number of bytes returned. At end of file it returns an empty
// slice and no error.
func (t *Table) Read(fd vkernel.FD, maxBytes int) ([]byte, error) {
	d, err := t.lookup("read", fd)
	if err != nil {
		return nil, err
	}
	if !d.Mode.CanRead() {
		return nil, &vkernel.FDError{Op: "read", FD: fd, Err: vkernel.ErrWrongAccessMode}
	}
	if maxBytes < 0 {
		return nil, &vkernel.FDError{Op: "read", FD: fd, Err: vkernel.ErrInvalidArgument}
	}
	data, err := t.store.ReadAt(d.Node, d.Offset, maxBytes)
	if err != nil {
		return nil, err
	}
	d.Offset += len(data)
	return data, nil
}

// Write appends data to the descriptor's file and returns the bytes written
func (t *Table) Write(fd vkernel.FD, data []byte) (int, error) {
	d, err := t.lookup("write", fd)
	if err != nil {
		return 0, err
	}
	if !d.Mode.CanWrite() {
		return 0, &vkernel.FDError{Op: "write", FD: fd, Err: vkernel.ErrWrongAccessMode}
	}
	if err := t.store.Write(d.Node, data, true); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close removes fd; later calls with the same handle fail with
// ErrUnknownDescriptor
func (t *Table) Close(fd vkernel.FD) error {
	if _, err := t.lookup("close", fd); err != nil {
		return err
	}
	delete(t.open, fd)
	return nil
}

// CloseAll drops every open descriptor and returns how many were closed
func (t *Table) CloseAll() int {
	n := len(t.open)
	clear(t.open)
	return n
}

// Len returns the number of open descriptors
func (t *Table) Len() int {
	return len(t.open)
}

// Handles returns the open handles in increasing order
func (t *Table) Handles() []vkernel.FD {
	return slices.Sorted(maps.Keys(t.open))
}
