package proc

import (
	"testing"

	"github.com/brettbedarf/vkernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	require.Equal(t, 1, r.Len())
	initInfo, err := r.Get(vkernel.InitPID)
	require.NoError(t, err)
	assert.Equal(t, vkernel.ProcessInfo{PID: 0, State: vkernel.ProcRunning}, initInfo)
	assert.False(t, initInfo.HasParent)
}

func TestRegistry_Spawn(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := r.Spawn(vkernel.InitPID)
	b := r.Spawn(vkernel.InitPID)

	assert.Equal(t, vkernel.PID(1), a)
	assert.Equal(t, vkernel.PID(2), b)

	for _, pid := range []vkernel.PID{a, b} {
		info, err := r.Get(pid)
		require.NoError(t, err)
		assert.Equal(t, vkernel.ProcReady, info.State)
		assert.True(t, info.HasParent)
		assert.Equal(t, vkernel.InitPID, info.Parent)
	}

	t.Run("ParentNotValidated", func(t *testing.T) {
		pid := r.Spawn(4242)
		info, err := r.Get(pid)
		require.NoError(t, err)
		assert.Equal(t, vkernel.PID(4242), info.Parent)
	})
}

func TestRegistry_List(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for range 5 {
		r.Spawn(0)
	}
	require.NoError(t, r.Terminate(3, 1))

	list := r.List()
	require.Len(t, list, 6)
	for i, info := range list {
		assert.Equal(t, vkernel.PID(i), info.PID, "must be ordered by pid")
	}
	assert.Equal(t, vkernel.ProcTerminated, list[3].State)
}

func TestRegistry_SetState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    []vkernel.ProcState
		wantErr bool
	}{
		{"ReadyToRunning", []vkernel.ProcState{vkernel.ProcRunning}, false},
		{"RunWaitReady", []vkernel.ProcState{vkernel.ProcRunning, vkernel.ProcWaiting, vkernel.ProcReady}, false},
		{"ReadyToWaiting", []vkernel.ProcState{vkernel.ProcWaiting}, true},
		{"ReadyToReady", []vkernel.ProcState{vkernel.ProcReady}, true},
		{"DirectToTerminated", []vkernel.ProcState{vkernel.ProcTerminated}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRegistry()
			pid := r.Spawn(0)
			var err error
			for _, st := range tt.path {
				if err = r.SetState(pid, st); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, vkernel.ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			info, _ := r.Get(pid)
			assert.Equal(t, tt.path[len(tt.path)-1], info.State)
		})
	}

	t.Run("UnknownProcess", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		assert.ErrorIs(t, r.SetState(9, vkernel.ProcRunning), vkernel.ErrUnknownProcess)
	})
}

func TestRegistry_Terminate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	parent := r.Spawn(0)
	child := r.Spawn(parent)

	require.NoError(t, r.Terminate(parent, 7))

	info, err := r.Get(parent)
	require.NoError(t, err)
	assert.Equal(t, vkernel.ProcTerminated, info.State)
	assert.Equal(t, 7, info.ExitCode)

	t.Run("NoReparenting", func(t *testing.T) {
		info, err := r.Get(child)
		require.NoError(t, err)
		assert.Equal(t, parent, info.Parent, "child keeps its terminated parent")
		assert.Equal(t, vkernel.ProcReady, info.State, "child is not terminated with its parent")
	})

	t.Run("TerminalStateIsFinal", func(t *testing.T) {
		assert.ErrorIs(t, r.Terminate(parent, 0), vkernel.ErrInvalidTransition)
		assert.ErrorIs(t, r.SetState(parent, vkernel.ProcReady), vkernel.ErrInvalidTransition)
		info, _ := r.Get(parent)
		assert.Equal(t, 7, info.ExitCode, "exit code must not change")
	})

	t.Run("UnknownProcess", func(t *testing.T) {
		assert.ErrorIs(t, r.Terminate(100, 0), vkernel.ErrUnknownProcess)
	})
}
