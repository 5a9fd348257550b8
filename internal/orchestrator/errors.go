package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrCollaboratorFailed = errors.New("collaborator call failed")
	ErrNoCollaborator     = errors.New("collaborator not wired")
	ErrUnverifiedAccount  = errors.New("account was not verified")
)

// Collaborator names.
const (
	SystemCollaborator = "system_program"
	TokenCollaborator  = "token_program"
	SwapCollaborator   = "swap_engine"
	BridgeCollaborator = "bridge"
)

// CollaboratorError reports a failed collaborator call. errors.Is matches
// ErrCollaboratorFailed and anything the collaborator returned.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorFailed
}

func failed(collaborator, op string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
}
