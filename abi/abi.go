// Package abi is the flat, sentinel-encoded syscall boundary. Numeric results
// use Failure (-1) for errors, text results use "", and listings are
// comma-joined. The error behind the last failed call is kept per instance
// and cleared by every successful call.
package abi

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/kernel"
)

// Failure is the numeric sentinel returned by a failed call. No valid
// descriptor, status or byte count is negative.
const Failure int32 = -1

// ListSep joins names in fs_list and entries in process_list
const ListSep = ","

// Exists results
const (
	ExistsDir    int32 = 1
	ExistsFile   int32 = 0
	ExistsAbsent int32 = -1
)

type ABI struct {
	k *kernel.Kernel

	mu   sync.Mutex
	last error
}

func New(k *kernel.Kernel) *ABI {
	return &ABI{k: k}
}

func (a *ABI) record(err error) {
	a.mu.Lock()
	a.last = err
	a.mu.Unlock()
}

// Err returns the error of the last call, or nil if it succeeded
func (a *ABI) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Errno returns the kind of the last call's error, 0 on success
func (a *ABI) Errno() vkernel.Errno {
	return vkernel.ErrnoOf(a.Err())
}

func status(err error) int32 {
	if err != nil {
		return Failure
	}
	return 0
}

// Boot boots the kernel at msec milliseconds since the Unix epoch and returns
// the banner, or "" if it was already booted
func (a *ABI) Boot(msec uint64) string {
	banner, err := a.k.Boot(time.UnixMilli(int64(msec)))
	a.record(err)
	return banner
}

func (a *ABI) UpdateTime(msec uint64) {
	a.k.UpdateTime(time.UnixMilli(int64(msec)))
	a.record(nil)
}

// GetUptime returns the uptime in whole milliseconds
func (a *ABI) GetUptime() uint64 {
	a.record(nil)
	return uint64(a.k.Uptime().Milliseconds())
}

func (a *ABI) Uname() string {
	a.record(nil)
	return a.k.Uname()
}

// FsCreate returns 0 on success
func (a *ABI) FsCreate(path string, isDir bool) int32 {
	kind := vkernel.KindFile
	if isDir {
		kind = vkernel.KindDirectory
	}
	err := a.k.Create(path, kind)
	a.record(err)
	return status(err)
}

// FsExists returns ExistsDir, ExistsFile or ExistsAbsent
func (a *ABI) FsExists(path string) int32 {
	a.record(nil)
	switch a.k.Exists(path) {
	case vkernel.Directory:
		return ExistsDir
	case vkernel.File:
		return ExistsFile
	default:
		return ExistsAbsent
	}
}

// FsList returns the comma-joined sorted names. An empty directory and a
// failure both yield ""; check Err to tell them apart.
func (a *ABI) FsList(path string) string {
	names, err := a.k.List(path)
	a.record(err)
	return strings.Join(names, ListSep)
}

func (a *ABI) FsCat(path string) string {
	content, err := a.k.Cat(path)
	a.record(err)
	return content
}

// FsOpen returns a descriptor or Failure. mode is "r", "w" or "a".
func (a *ABI) FsOpen(path, mode string) int32 {
	m, err := vkernel.ParseAccessMode(mode)
	if err != nil {
		a.record(&vkernel.PathError{Op: "fs_open", Path: path, Err: vkernel.ErrInvalidArgument})
		return Failure
	}
	fd, err := a.k.Open(path, m)
	a.record(err)
	if err != nil {
		return Failure
	}
	return int32(fd)
}

// FsRead returns up to size bytes as text. "" means end of file or failure.
func (a *ABI) FsRead(fd int32, size uint32) string {
	data, err := a.k.Read(vkernel.FD(fd), int(min(size, uint32(1<<31-1))))
	a.record(err)
	return string(data)
}

// FsWrite returns the bytes written or Failure
func (a *ABI) FsWrite(fd int32, data string) int32 {
	n, err := a.k.Write(vkernel.FD(fd), []byte(data))
	a.record(err)
	if err != nil {
		return Failure
	}
	return int32(n)
}

func (a *ABI) FsClose(fd int32) int32 {
	err := a.k.Close(vkernel.FD(fd))
	a.record(err)
	return status(err)
}

func (a *ABI) ProcessSpawn(ppid uint32) uint32 {
	a.record(nil)
	return uint32(a.k.Spawn(vkernel.PID(ppid)))
}

// ProcessList encodes each process as pid:state:ppid, with "-" for init's
// parent, comma-joined in pid order
func (a *ABI) ProcessList() string {
	a.record(nil)
	procs := a.k.Processes()
	entries := make([]string, 0, len(procs))
	for _, p := range procs {
		parent := "-"
		if p.HasParent {
			parent = strconv.FormatUint(uint64(p.Parent), 10)
		}
		entries = append(entries, strconv.FormatUint(uint64(p.PID), 10)+":"+p.State.String()+":"+parent)
	}
	return strings.Join(entries, ListSep)
}

func (a *ABI) ProcessKill(pid uint32, exitCode int32) int32 {
	err := a.k.Kill(vkernel.PID(pid), int(exitCode))
	a.record(err)
	return status(err)
}
