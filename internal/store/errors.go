package store

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrOpen              = errors.New("store open failed")
	ErrUpgrade           = errors.New("store upgrade failed")
	ErrTransaction       = errors.New("store transaction failed")
	ErrKeyConflict       = errors.New("key already exists")
	ErrMissingCollection = errors.New("collection missing")
)

// Error describes a failed store operation.
type Error struct {
	Kind error
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func conflict(op, key string) *Error {
	return &Error{Kind: ErrKeyConflict, Op: op, Key: key}
}

func errorf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
