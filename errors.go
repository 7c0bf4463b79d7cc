package vkernel

import (
	"errors"
	"fmt"
	"strconv"
)

// Errno is the closed set of error kinds returned by the kernel core.
// Every core error unwraps to exactly one Errno so callers branch with
// errors.Is instead of parsing text.
type Errno int

const (
	ErrPathNotFound Errno = iota + 1
	ErrNotADirectory
	ErrNotAFile
	ErrInvalidName
	ErrDuplicateName
	ErrUnknownDescriptor
	ErrWrongAccessMode
	ErrInvalidArgument
	ErrDescriptorsExhausted
	ErrAlreadyBooted
	ErrUnknownProcess
	ErrInvalidTransition
)

var errnoText = map[Errno]string{
	ErrPathNotFound:         "path not found",
	ErrNotADirectory:        "not a directory",
	ErrNotAFile:             "not a file",
	ErrInvalidName:          "invalid name",
	ErrDuplicateName:        "name already exists",
	ErrUnknownDescriptor:    "unknown descriptor",
	ErrWrongAccessMode:      "descriptor not open for this access",
	ErrInvalidArgument:      "invalid argument",
	ErrDescriptorsExhausted: "too many open descriptors",
	ErrAlreadyBooted:        "kernel already booted",
	ErrUnknownProcess:       "unknown process",
	ErrInvalidTransition:    "invalid process state transition",
}

func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return "errno " + strconv.Itoa(int(e))
}

// ErrnoOf returns the Errno carried by err, or 0 if err is nil or foreign
func ErrnoOf(err error) Errno {
	var e Errno
	if errors.As(err, &e) {
		return e
	}
	return 0
}

// PathError records the operation and path that produced an Errno
type PathError struct {
	Op   string
	Path string
	Err  Errno
}

func (e *PathError) Error() string { return e.Op + " " + e.Path + ": " + e.Err.Error() }
func (e *PathError) Unwrap() error { return e.Err }

// FDError records the operation and descriptor that produced an Errno
type FDError struct {
	Op  string
	FD  FD
	Err Errno
}

func (e *FDError) Error() string { return fmt.Sprintf("%s fd %d: %s", e.Op, e.FD, e.Err) }
func (e *FDError) Unwrap() error { return e.Err }

// ProcError records the operation and pid that produced an Errno
type ProcError struct {
	Op  string
	PID PID
	Err Errno
}

func (e *ProcError) Error() string { return fmt.Sprintf("%s pid %d: %s", e.Op, e.PID, e.Err) }
func (e *ProcError) Unwrap() error { return e.Err }
