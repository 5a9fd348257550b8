package account

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAccount        = errors.New("missing account")
	ErrAccountMismatch       = errors.New("unexpected account")
	ErrWrongOwner            = errors.New("wrong owner")
	ErrMintMismatch          = errors.New("mint mismatch")
	ErrUnauthorizedAuthority = errors.New("unauthorized authority")
	ErrMissingSignature      = errors.New("missing required signature")
	ErrNotWritable           = errors.New("account not writable")
	ErrInvalidTable          = errors.New("invalid validation table")
)

// Error names the role whose relationship check failed.
type Error struct {
	Role Role
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Role, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(role Role, err error) error {
	return &Error{Role: role, Err: err}
}
