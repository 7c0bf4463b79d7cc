package vkernel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrno_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "path not found", ErrPathNotFound.Error())
	assert.Equal(t, "invalid process state transition", ErrInvalidTransition.Error())
	assert.Equal(t, "errno 999", Errno(999).Error())
}

func TestErrnoOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Errno
	}{
		{"Nil", nil, 0},
		{"Foreign", errors.New("boom"), 0},
		{"Bare", ErrNotAFile, ErrNotAFile},
		{"PathError", &PathError{Op: "fs_cat", Path: "/etc", Err: ErrNotAFile}, ErrNotAFile},
		{"Wrapped", fmt.Errorf("seed entry 0: %w", &FDError{Op: "fs_read", FD: 3, Err: ErrWrongAccessMode}), ErrWrongAccessMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ErrnoOf(tt.err))
		})
	}
}

func TestErrorWrappers(t *testing.T) {
	t.Parallel()

	t.Run("PathError", func(t *testing.T) {
		err := &PathError{Op: "fs_list", Path: "/missing", Err: ErrPathNotFound}
		assert.Equal(t, "fs_list /missing: path not found", err.Error())
		assert.ErrorIs(t, err, ErrPathNotFound)
		assert.NotErrorIs(t, err, ErrNotADirectory)
	})

	t.Run("FDError", func(t *testing.T) {
		err := &FDError{Op: "fs_close", FD: 7, Err: ErrUnknownDescriptor}
		assert.Equal(t, "fs_close fd 7: unknown descriptor", err.Error())
		assert.ErrorIs(t, err, ErrUnknownDescriptor)
	})

	t.Run("ProcError", func(t *testing.T) {
		err := &ProcError{Op: "process_kill", PID: 42, Err: ErrUnknownProcess}
		assert.Equal(t, "process_kill pid 42: unknown process", err.Error())
		assert.ErrorIs(t, err, ErrUnknownProcess)

		var pe *ProcError
		assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &pe)
		assert.Equal(t, PID(42), pe.PID)
	})
}

func TestParseAccessMode(t *testing.T) {
	t.Parallel()

	for _, m := range []AccessMode{ModeRead, ModeWrite, ModeAppend} {
		got, err := ParseAccessMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseAccessMode("rw")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.True(t, ModeRead.CanRead())
	assert.False(t, ModeRead.CanWrite())
	assert.True(t, ModeAppend.CanWrite())
	assert.False(t, ModeWrite.CanRead())
}

func TestParseProcState(t *testing.T) {
	t.Parallel()

	st, err := ParseProcState("Waiting")
	assert.NoError(t, err)
	assert.Equal(t, ProcWaiting, st)

	_, err = ParseProcState("waiting")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
