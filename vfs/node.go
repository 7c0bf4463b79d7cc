package vfs

import "github.com/brettbedarf/vkernel"

// Node is a single file or directory entry in the arena. Nodes refer to their
// parent and children by id only; the Store owns every Node.
type Node struct {
	id       vkernel.Ino
	kind     vkernel.NodeKind
	name     string                 // Name of the node (last part of the path); "" for root
	parent   vkernel.Ino            // Owning directory; equals id for the root
	children map[string]vkernel.Ino // Directory entries by name; nil for files
	content  []byte                 // File data; always empty for directories
}

func newNode(id, parent vkernel.Ino, name string, kind vkernel.NodeKind) *Node {
	n := &Node{
		id:     id,
		kind:   kind,
		name:   name,
		parent: parent,
	}
	if kind == vkernel.KindDirectory {
		n.children = make(map[string]vkernel.Ino)
	}
	return n
}

func (n *Node) isDir() bool  { return n.kind == vkernel.KindDirectory }
func (n *Node) isRoot() bool { return n.id == vkernel.RootIno }

// validName reports whether name may be used for a new child entry
func validName(name string) bool {
	return name != "" && name != "." && name != ".."
}
