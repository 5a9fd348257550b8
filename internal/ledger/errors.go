package ledger

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotInCall    = errors.New("account not passed to the call")
	ErrReadOnlyAccount     = errors.New("account is read-only in this call")
	ErrAccountAlreadyInUse = errors.New("account already in use")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrDuplicateSignature  = errors.New("duplicate signature")
	ErrNotTokenAccount     = errors.New("not a token account")
	ErrTokenMintMismatch   = errors.New("token mint mismatch")
	ErrOwnerMismatch       = errors.New("owner does not match")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrProgramMismatch     = errors.New("call addressed to another program")
	ErrMissingSigner       = errors.New("required signer missing")
	ErrSlippage            = errors.New("output below minimum")
	ErrEmptyPool           = errors.New("pool has no liquidity")
	ErrLedgerClosed        = errors.New("ledger is closed")
)
