package kernel

import (
	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/util"
)

// pathErr re-tags a core error with the syscall name and the caller's path
func pathErr(op, p string, err error) error {
	if errno := vkernel.ErrnoOf(err); errno != 0 {
		return &vkernel.PathError{Op: op, Path: p, Err: errno}
	}
	return err
}

// fdErr re-tags a core error with the syscall name and handle
func fdErr(op string, fd vkernel.FD, err error) error {
	if errno := vkernel.ErrnoOf(err); errno != 0 {
		return &vkernel.FDError{Op: op, FD: fd, Err: errno}
	}
	return err
}

// procErr re-tags a core error with the syscall name and pid
func procErr(op string, pid vkernel.PID, err error) error {
	if errno := vkernel.ErrnoOf(err); errno != 0 {
		return &vkernel.ProcError{Op: op, PID: pid, Err: errno}
	}
	return err
}

// Create adds an empty file or directory at p. The parent must exist.
func (k *Kernel) Create(p string, kind vkernel.NodeKind) error {
	defer k.enter("fs_create")()
	if _, err := k.nodes.Create(p, kind); err != nil {
		logger := util.GetLogger("Kernel.Create")
		logger.Debug().Err(err).Str("path", p).Stringer("kind", kind).Msg("Create failed")
		return pathErr("fs_create", p, err)
	}
	return nil
}

// Mkdir creates p and any missing parents
func (k *Kernel) Mkdir(p string) error {
	defer k.enter("fs_mkdir")()
	if _, err := k.nodes.MkdirAll(p); err != nil {
		logger := util.GetLogger("Kernel.Mkdir")
		logger.Debug().Err(err).Str("path", p).Msg("Mkdir failed")
		return pathErr("fs_mkdir", p, err)
	}
	return nil
}

// Exists reports whether p is a directory, a file or absent. It never fails
// and has no side effects.
func (k *Kernel) Exists(p string) vkernel.Existence {
	defer k.enter("fs_exists")()
	return k.nodes.Exists(p)
}

// List returns the sorted names in directory p
func (k *Kernel) List(p string) ([]string, error) {
	defer k.enter("fs_list")()
	names, err := k.nodes.List(p)
	if err != nil {
		logger := util.GetLogger("Kernel.List")
		logger.Debug().Err(err).Str("path", p).Msg("List failed")
		return nil, pathErr("fs_list", p, err)
	}
	return names, nil
}

// Cat returns the whole content of file p as text
func (k *Kernel) Cat(p string) (string, error) {
	defer k.enter("fs_cat")()
	logger := util.GetLogger("Kernel.Cat")

	id, err := k.nodes.Resolve(p)
	if err != nil {
		logger.Debug().Err(err).Str("path", p).Msg("Cat failed")
		return "", pathErr("fs_cat", p, err)
	}
	data, err := k.nodes.Read(id)
	if err != nil {
		logger.Debug().Err(err).Str("path", p).Msg("Cat failed")
		return "", pathErr("fs_cat", p, err)
	}
	return string(data), nil
}

// Stat returns a snapshot of the node at p
func (k *Kernel) Stat(p string) (vkernel.NodeInfo, error) {
	defer k.enter("fs_stat")()
	id, err := k.nodes.Resolve(p)
	if err != nil {
		return vkernel.NodeInfo{}, pathErr("fs_stat", p, err)
	}
	info, err := k.nodes.Stat(id)
	if err != nil {
		return vkernel.NodeInfo{}, pathErr("fs_stat", p, err)
	}
	return info, nil
}

// Open returns a new descriptor for file p. Opening never creates: a missing
// path fails with ErrPathNotFound and a directory with ErrNotAFile.
func (k *Kernel) Open(p string, mode vkernel.AccessMode) (vkernel.FD, error) {
	defer k.enter("fs_open")()
	logger := util.GetLogger("Kernel.Open")

	id, err := k.nodes.Resolve(p)
	if err != nil {
		logger.Debug().Err(err).Str("path", p).Msg("Open failed")
		return -1, pathErr("fs_open", p, err)
	}
	fd, err := k.files.Open(id, mode)
	if err != nil {
		logger.Debug().Err(err).Str("path", p).Stringer("mode", mode).Msg("Open failed")
		return -1, pathErr("fs_open", p, err)
	}
	logger.Trace().Str("path", p).Int32("fd", int32(fd)).Stringer("mode", mode).Msg("Opened")
	return fd, nil
}

// Read returns up to size bytes from fd and advances its offset. size is
// capped at the configured MaxReadSize. An empty result means end of file.
func (k *Kernel) Read(fd vkernel.FD, size int) ([]byte, error) {
	defer k.enter("fs_read")()
	data, err := k.files.Read(fd, min(size, k.cfg.MaxReadSize))
	if err != nil {
		logger := util.GetLogger("Kernel.Read")
		logger.Debug().Err(err).Int32("fd", int32(fd)).Msg("Read failed")
		return nil, fdErr("fs_read", fd, err)
	}
	return data, nil
}

// Write appends data to the file behind fd and returns the bytes written
func (k *Kernel) Write(fd vkernel.FD, data []byte) (int, error) {
	defer k.enter("fs_write")()
	n, err := k.files.Write(fd, data)
	if err != nil {
		logger := util.GetLogger("Kernel.Write")
		logger.Debug().Err(err).Int32("fd", int32(fd)).Msg("Write failed")
		return 0, fdErr("fs_write", fd, err)
	}
	return n, nil
}

// Close releases fd
func (k *Kernel) Close(fd vkernel.FD) error {
	defer k.enter("fs_close")()
	if err := k.files.Close(fd); err != nil {
		logger := util.GetLogger("Kernel.Close")
		logger.Debug().Err(err).Int32("fd", int32(fd)).Msg("Close failed")
		return fdErr("fs_close", fd, err)
	}
	return nil
}

// OpenFDs returns the number of live descriptors
func (k *Kernel) OpenFDs() int {
	defer k.enter("fs_fds")()
	return k.files.Len()
}

// Spawn registers a Ready child of parent and returns its pid. It never fails.
func (k *Kernel) Spawn(parent vkernel.PID) vkernel.PID {
	defer k.enter("process_spawn")()
	pid := k.procs.Spawn(parent)
	logger := util.GetLogger("Kernel.Spawn")
	logger.Debug().Uint32("pid", uint32(pid)).Uint32("parent", uint32(parent)).Msg("Spawned")
	return pid
}

// Processes lists every process ordered by pid
func (k *Kernel) Processes() []vkernel.ProcessInfo {
	defer k.enter("process_list")()
	return k.procs.List()
}

// Process returns a snapshot of pid
func (k *Kernel) Process(pid vkernel.PID) (vkernel.ProcessInfo, error) {
	defer k.enter("process_get")()
	info, err := k.procs.Get(pid)
	if err != nil {
		return vkernel.ProcessInfo{}, procErr("process_get", pid, err)
	}
	return info, nil
}

// Kill terminates pid with exitCode. Its children are not touched.
func (k *Kernel) Kill(pid vkernel.PID, exitCode int) error {
	defer k.enter("process_kill")()
	if err := k.procs.Terminate(pid, exitCode); err != nil {
		logger := util.GetLogger("Kernel.Kill")
		logger.Debug().Err(err).Uint32("pid", uint32(pid)).Msg("Kill failed")
		return procErr("process_kill", pid, err)
	}
	return nil
}

// SetProcessState moves pid to state along an allowed transition
func (k *Kernel) SetProcessState(pid vkernel.PID, state vkernel.ProcState) error {
	defer k.enter("process_set_state")()
	if err := k.procs.SetState(pid, state); err != nil {
		logger := util.GetLogger("Kernel.SetProcessState")
		logger.Debug().Err(err).Uint32("pid", uint32(pid)).Stringer("state", state).Msg("State change failed")
		return procErr("process_set_state", pid, err)
	}
	return nil
}

// StatIno returns a snapshot of node id. Mirrors such as the FUSE mount
// address nodes by id rather than by path.
func (k *Kernel) StatIno(id vkernel.Ino) (vkernel.NodeInfo, error) {
	defer k.enter("ino_stat")()
	return k.nodes.Stat(id)
}

// ReadIno returns up to size bytes of file node id starting at off, without
// a descriptor
func (k *Kernel) ReadIno(id vkernel.Ino, off, size int) ([]byte, error) {
	defer k.enter("ino_read")()
	return k.nodes.ReadAt(id, off, min(size, k.cfg.MaxReadSize))
}
