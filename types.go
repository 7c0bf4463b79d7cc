// Package vkernel contains core domain types and the error taxonomy shared by
// the virtual kernel's node store, descriptor table, process registry and
// syscall boundary.
package vkernel

import "fmt"

// Ino is the stable identity of a node in the VFS arena
type Ino uint64

// RootIno is the id of the root directory; it always exists and is never removed
const RootIno Ino = 0

// FD is an open file descriptor handle
type FD int32

// PID is a process id. Pid 0 is reserved for init.
type PID uint32

// InitPID is the pid of the process created when the kernel is constructed
const InitPID PID = 0

// NodeKind valid kinds are KindFile and KindDirectory
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindDirectory
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "dir"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Existence is the tri-state answer of an exists probe. It lets callers tell
// "absent" apart from "present but the wrong kind" without listing anything.
type Existence int8

const (
	Absent    Existence = -1
	File      Existence = 0
	Directory Existence = 1
)

func (e Existence) String() string {
	switch e {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "absent"
	}
}

// ExistenceOf maps a node kind to the matching Existence value
func ExistenceOf(k NodeKind) Existence {
	if k == KindDirectory {
		return Directory
	}
	return File
}

// AccessMode is the mode a descriptor was opened with
type AccessMode uint8

const (
	ModeRead   AccessMode = iota // "r"
	ModeWrite                    // "w": truncate on open, writes append
	ModeAppend                   // "a": writes append, no truncate
)

// ParseAccessMode converts the boundary's "r"/"w"/"a" strings to an AccessMode
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "a":
		return ModeAppend, nil
	}
	return 0, ErrInvalidArgument
}

func (m AccessMode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	default:
		return fmt.Sprintf("AccessMode(%d)", uint8(m))
	}
}

// CanRead reports whether reads are allowed through a descriptor with this mode
func (m AccessMode) CanRead() bool { return m == ModeRead }

// CanWrite reports whether writes are allowed through a descriptor with this mode
func (m AccessMode) CanWrite() bool { return m == ModeWrite || m == ModeAppend }

// ProcState is the lifecycle state of a process. Ready is the initial state
// and Terminated is terminal.
type ProcState uint8

const (
	ProcReady ProcState = iota
	ProcRunning
	ProcWaiting
	ProcTerminated
)

func (s ProcState) String() string {
	switch s {
	case ProcReady:
		return "Ready"
	case ProcRunning:
		return "Running"
	case ProcWaiting:
		return "Waiting"
	case ProcTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("ProcState(%d)", uint8(s))
	}
}

// ParseProcState accepts the state names as printed by String, case-sensitive
func ParseProcState(s string) (ProcState, error) {
	for _, st := range []ProcState{ProcReady, ProcRunning, ProcWaiting, ProcTerminated} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, ErrInvalidArgument
}

// ProcessInfo is a read-only snapshot of a process control block
type ProcessInfo struct {
	PID       PID
	State     ProcState
	Parent    PID  // Only meaningful when HasParent is set
	HasParent bool // false only for init
	ExitCode  int  // Only meaningful once State is ProcTerminated
}

// NodeInfo is a read-only snapshot of a node
type NodeInfo struct {
	ID     Ino
	Kind   NodeKind
	Name   string // "" for the root
	Size   int    // content length; 0 for directories
	Parent Ino    // equals ID for the root
	Path   string // absolute path, "/" for the root
}
