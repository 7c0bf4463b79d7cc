// Package fusefs mirrors the kernel's node tree onto a host mount point,
// read-only, over the low-level FUSE wire protocol.
package fusefs

import (
	"os"
	"syscall"
	"time"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Tree is the kernel surface the mirror reads through
type Tree interface {
	StatIno(id vkernel.Ino) (vkernel.NodeInfo, error)
	ReadIno(id vkernel.Ino, off, size int) ([]byte, error)
	List(p string) ([]string, error)
	Stat(p string) (vkernel.NodeInfo, error)
}

// Cache timeouts handed to the host kernel. Nodes can change under the
// mount at any time, so they are kept short.
const (
	entryTimeout = time.Second
	attrTimeout  = time.Second
)

// FuseRaw implements the low-level FUSE wire protocol
// It serves as protocol adapter between FUSE and the kernel's node tree
// See https://www.man7.org/linux//man-pages/man4/fuse.4.html
type FuseRaw struct {
	fuse.RawFileSystem
	tree    Tree
	mounted time.Time // reported as every node's a/m/ctime
	uid     uint32
	gid     uint32
	server  *fuse.Server
}

func NewFuseRaw(tree Tree) *FuseRaw {
	return &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		tree:          tree,
		mounted:       time.Now(),
		uid:           uint32(os.Getuid()),
		gid:           uint32(os.Getgid()),
	}
}

// NodeID maps a node to its FUSE id; the root becomes FUSE_ROOT_ID
func NodeID(id vkernel.Ino) uint64 { return uint64(id) + fuse.FUSE_ROOT_ID }

// Ino maps a FUSE node id back to the node it names
func Ino(nodeID uint64) vkernel.Ino { return vkernel.Ino(nodeID - fuse.FUSE_ROOT_ID) }

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *FuseRaw) String() string {
	return "vkernel.FuseRaw"
}

// toStatus maps a kernel error to a FUSE status
func toStatus(err error) fuse.Status {
	switch vkernel.ErrnoOf(err) {
	case 0:
		if err == nil {
			return fuse.OK
		}
		return fuse.EIO
	case vkernel.ErrPathNotFound:
		return fuse.ENOENT
	case vkernel.ErrNotADirectory:
		return fuse.ENOTDIR
	case vkernel.ErrNotAFile:
		return fuse.EISDIR
	case vkernel.ErrInvalidArgument, vkernel.ErrInvalidName:
		return fuse.EINVAL
	default:
		return fuse.EIO
	}
}

// fillAttr writes info into a FUSE attribute block
func (r *FuseRaw) fillAttr(info vkernel.NodeInfo, attr *fuse.Attr) {
	mode := uint32(syscall.S_IFREG | 0o444)
	nlink := uint32(1)
	if info.Kind == vkernel.KindDirectory {
		mode = uint32(syscall.S_IFDIR | 0o555)
		nlink = 2
	}
	secs, nsecs := uint64(r.mounted.Unix()), uint32(r.mounted.Nanosecond())

	*attr = fuse.Attr{
		Ino:       NodeID(info.ID),
		Size:      uint64(info.Size),
		Blocks:    (uint64(info.Size) + 511) / 512,
		Mode:      mode,
		Nlink:     nlink,
		Owner:     fuse.Owner{Uid: r.uid, Gid: r.gid},
		Atime:     secs,
		Mtime:     secs,
		Ctime:     secs,
		Atimensec: nsecs,
		Mtimensec: nsecs,
		Ctimensec: nsecs,
		Blksize:   4096, // preferred size for fs ops
	}
}

func childPath(dir, name string) string {
	if dir == "/" {
		return dir + name
	}
	return dir + "/" + name
}

// Lookup resolves name inside the directory header.NodeId
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	parent, err := r.tree.StatIno(Ino(header.NodeId))
	if err != nil {
		return toStatus(err)
	}
	if parent.Kind != vkernel.KindDirectory {
		return fuse.ENOTDIR
	}
	info, err := r.tree.Stat(childPath(parent.Path, name))
	if err != nil {
		return toStatus(err)
	}

	out.NodeId = NodeID(info.ID)
	r.fillAttr(info, &out.Attr)
	out.SetEntryTimeout(entryTimeout)
	out.SetAttrTimeout(attrTimeout)
	return fuse.OK
}

// Forget is a no-op: node ids are derived from inode ids, which live for the
// kernel's lifetime, so there is no lookup count to drop
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	info, err := r.tree.StatIno(Ino(input.NodeId))
	if err != nil {
		return toStatus(err)
	}
	r.fillAttr(info, &out.Attr)
	out.SetTimeout(attrTimeout)
	return fuse.OK
}

// Open allows read-only opens of file nodes. Reads go straight to the node
// so no handle state is kept.
func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	if input.Flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC) != 0 {
		return fuse.EROFS
	}
	info, err := r.tree.StatIno(Ino(input.NodeId))
	if err != nil {
		return toStatus(err)
	}
	if info.Kind != vkernel.KindFile {
		return fuse.EISDIR
	}
	// content can change between reads; skip the page cache
	out.OpenFlags |= fuse.FOPEN_DIRECT_IO
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	logger := util.GetLogger("Fuse.Read")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Uint32("size", input.Size).Msg("Read called")

	size := min(int(input.Size), len(buf))
	data, err := r.tree.ReadIno(Ino(input.NodeId), int(input.Offset), size)
	if err != nil {
		return nil, toStatus(err)
	}
	return fuse.ReadResultData(data), fuse.OK
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	info, err := r.tree.StatIno(Ino(input.NodeId))
	if err != nil {
		return toStatus(err)
	}
	if info.Kind != vkernel.KindDirectory {
		return fuse.ENOTDIR
	}
	return fuse.OK
}

// ReadDir lists ".", ".." and the sorted children. input.Offset is the index
// of the first entry still to send.
func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	logger := util.GetLogger("Fuse.ReadDir")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Msg("ReadDir called")

	entries, err := r.dirEntries(Ino(input.NodeId))
	if err != nil {
		return toStatus(err)
	}
	for i := int(input.Offset); i < len(entries); i++ {
		e := entries[i]
		e.Off = uint64(i + 1)
		if !out.AddDirEntry(e) {
			// buffer full; the host asks again from the new offset
			break
		}
	}
	return fuse.OK
}

// ReadDirPlus is ReadDir plus the attributes of every child, saving the host
// a Lookup per entry
func (r *FuseRaw) ReadDirPlus(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	entries, err := r.dirEntries(Ino(input.NodeId))
	if err != nil {
		return toStatus(err)
	}
	for i := int(input.Offset); i < len(entries); i++ {
		e := entries[i]
		e.Off = uint64(i + 1)
		entryOut := out.AddDirLookupEntry(e)
		if entryOut == nil {
			break
		}
		// "." and ".." keep a zero NodeId so the host takes no lookup count
		if e.Name == "." || e.Name == ".." {
			continue
		}
		info, err := r.tree.StatIno(Ino(e.Ino))
		if err != nil {
			return toStatus(err)
		}
		entryOut.NodeId = e.Ino
		r.fillAttr(info, &entryOut.Attr)
		entryOut.SetEntryTimeout(entryTimeout)
		entryOut.SetAttrTimeout(attrTimeout)
	}
	return fuse.OK
}

func (r *FuseRaw) dirEntries(id vkernel.Ino) ([]fuse.DirEntry, error) {
	dir, err := r.tree.StatIno(id)
	if err != nil {
		return nil, err
	}
	if dir.Kind != vkernel.KindDirectory {
		return nil, &vkernel.PathError{Op: "readdir", Path: dir.Path, Err: vkernel.ErrNotADirectory}
	}
	names, err := r.tree.List(dir.Path)
	if err != nil {
		return nil, err
	}

	entries := make([]fuse.DirEntry, 0, len(names)+2)
	entries = append(entries,
		fuse.DirEntry{Name: ".", Mode: syscall.S_IFDIR, Ino: NodeID(dir.ID)},
		fuse.DirEntry{Name: "..", Mode: syscall.S_IFDIR, Ino: NodeID(dir.Parent)},
	)
	for _, name := range names {
		info, err := r.tree.Stat(childPath(dir.Path, name))
		if err != nil {
			return nil, err
		}
		mode := uint32(syscall.S_IFREG)
		if info.Kind == vkernel.KindDirectory {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode, Ino: NodeID(info.ID)})
	}
	return entries, nil
}

func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	out.Bsize = 4096
	out.NameLen = 255
	return fuse.OK
}
