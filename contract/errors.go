package contract

import (
	"errors"
	"fmt"

	"github.com/calehh/hac-gov/space"
)

type Kind uint32

const (
	KindValidation   Kind = 1
	KindPrecondition Kind = 2
	KindPort         Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindPort:
		return "port"
	}
	return "unknown"
}

var (
	ErrNotStarted     = errors.New("governance not started")
	ErrAlreadyStarted = errors.New("governance already started")
	ErrUnknownAction  = errors.New("unknown action")
	ErrInputCount     = errors.New("wrong number of inputs")
	ErrNotFound       = errors.New("document not found")
	ErrNotMember      = errors.New("caller is not a member")
	ErrNotOwner       = errors.New("caller is not the owner")
	ErrVoteNotOpen    = errors.New("vote is not open")
	ErrVoteNotEnded   = errors.New("vote has not ended")
	ErrDuplicateVote  = errors.New("already voted")
	ErrAlreadyClosed  = errors.New("vote already closed")
	ErrNotClosed      = errors.New("vote not closed")
	ErrNoVote         = errors.New("caller has no single vote")
	ErrExists         = errors.New("document already exists")
)

// Error is returned by every failing action.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Preconditionf wraps err, usually a sentinel, as a failed precondition.
func Preconditionf(err error, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Msg: fmt.Sprintf(format, args...), Err: err}
}

// PortErr reports a failing collaborator. A document that already exists is
// a precondition failure rather than a port failure.
func PortErr(err error, op string) *Error {
	if errors.Is(err, space.ErrExists) {
		return &Error{Kind: KindPrecondition, Msg: op, Err: ErrExists}
	}
	return &Error{Kind: KindPort, Msg: op, Err: err}
}

// KindOf returns the kind of err, or 0 for errors not raised by a contract.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
