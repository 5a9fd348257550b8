// Package account validates the accounts attached to a call against the
// relationships an operation requires.
package account

import "github.com/gagliardetto/solana-go"

// Role names the part an account plays in an operation, e.g. "sender".
type Role string

// TokenState is the token-program view of a token account.
type TokenState struct {
	Mint            solana.PublicKey
	Authority       solana.PublicKey
	Amount          uint64
	Delegate        solana.PublicKey
	DelegatedAmount uint64
}

// Ref is an account as the ledger presents it to a call. The core reads it
// and never mutates it; balances change only inside collaborator calls.
type Ref struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Executable bool
	IsSigner   bool
	IsWritable bool
	// Token is nil unless the account holds token-program state.
	Token *TokenState
}

func (r Ref) clone() Ref {
	if r.Token != nil {
		t := *r.Token
		r.Token = &t
	}
	return r
}
