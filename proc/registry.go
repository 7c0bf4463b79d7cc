// Package proc keeps the process control blocks. The blocks are deliberately
// thin: a state machine, a parent pid and an exit code, nothing scheduled.
package proc

import (
	"maps"
	"math"
	"slices"

	"github.com/brettbedarf/vkernel"
	"github.com/brettbedarf/vkernel/internal/idgen"
)

// PCB is a process control block
type PCB struct {
	pid       vkernel.PID
	state     vkernel.ProcState
	parent    vkernel.PID
	hasParent bool
	exitCode  int
}

func (p *PCB) info() vkernel.ProcessInfo {
	return vkernel.ProcessInfo{
		PID:       p.pid,
		State:     p.state,
		Parent:    p.parent,
		HasParent: p.hasParent,
		ExitCode:  p.exitCode,
	}
}

// transitions lists the allowed non-terminal moves. Terminated is reached
// only through Terminate and has no way out.
var transitions = map[vkernel.ProcState][]vkernel.ProcState{
	vkernel.ProcReady:   {vkernel.ProcRunning},
	vkernel.ProcRunning: {vkernel.ProcReady, vkernel.ProcWaiting},
	vkernel.ProcWaiting: {vkernel.ProcReady},
}

// Registry is not safe for concurrent use; the kernel serialises calls
type Registry struct {
	procs map[vkernel.PID]*PCB
	pids  *idgen.Allocator[vkernel.PID]
}

// NewRegistry returns a registry holding only init (pid 0, Running)
func NewRegistry() *Registry {
	initPCB := &PCB{pid: vkernel.InitPID, state: vkernel.ProcRunning}
	return &Registry{
		procs: map[vkernel.PID]*PCB{vkernel.InitPID: initPCB},
		pids:  idgen.New[vkernel.PID](vkernel.InitPID+1, math.MaxUint32),
	}
}

// Spawn registers a Ready process whose parent is parent and returns its pid.
// parent is recorded as given; it need not name a live process.
func (r *Registry) Spawn(parent vkernel.PID) vkernel.PID {
	pid, ok := r.pids.Next()
	if !ok {
		// 2^32-1 spawns without reuse; out of reach for a shell session
		panic("proc: pid space exhausted")
	}
	r.procs[pid] = &PCB{pid: pid, state: vkernel.ProcReady, parent: parent, hasParent: true}
	return pid
}

// Get returns a snapshot of pid
func (r *Registry) Get(pid vkernel.PID) (vkernel.ProcessInfo, error) {
	p, ok := r.procs[pid]
	if !ok {
		return vkernel.ProcessInfo{}, &vkernel.ProcError{Op: "get", PID: pid, Err: vkernel.ErrUnknownProcess}
	}
	return p.info(), nil
}

// List returns every process ordered by pid, terminated ones included
func (r *Registry) List() []vkernel.ProcessInfo {
	out := make([]vkernel.ProcessInfo, 0, len(r.procs))
	for _, pid := range slices.Sorted(maps.Keys(r.procs)) {
		out = append(out, r.procs[pid].info())
	}
	return out
}

// SetState moves pid along one of the allowed transitions
func (r *Registry) SetState(pid vkernel.PID, to vkernel.ProcState) error {
	p, ok := r.procs[pid]
	if !ok {
		return &vkernel.ProcError{Op: "setstate", PID: pid, Err: vkernel.ErrUnknownProcess}
	}
	if !slices.Contains(transitions[p.state], to) {
		return &vkernel.ProcError{Op: "setstate", PID: pid, Err: vkernel.ErrInvalidTransition}
	}
	p.state = to
	return nil
}

// Terminate marks pid Terminated with exitCode. Children are left as they
// are: nothing is reparented or terminated with it.
func (r *Registry) Terminate(pid vkernel.PID, exitCode int) error {
	p, ok := r.procs[pid]
	if !ok {
		return &vkernel.ProcError{Op: "terminate", PID: pid, Err: vkernel.ErrUnknownProcess}
	}
	if p.state == vkernel.ProcTerminated {
		return &vkernel.ProcError{Op: "terminate", PID: pid, Err: vkernel.ErrInvalidTransition}
	}
	p.state = vkernel.ProcTerminated
	p.exitCode = exitCode
	return nil
}

// Len returns the number of registered processes
func (r *Registry) Len() int {
	return len(r.procs)
}
