package ledger

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/crypto"
)

const (
	prefixAccount byte = iota + 1
	prefixEvent
	prefixMeta
)

var keyEventCount = []byte{prefixMeta, 'e'}

func makeKey(prefix byte, key []byte) []byte {
	result := make([]byte, 1+len(key))
	result[0] = prefix
	copy(result[1:], key)
	return result
}

func accountKey(k solana.PublicKey) []byte { return makeKey(prefixAccount, k[:]) }

// TokenAccount is the token program's state for one account.
type TokenAccount struct {
	Mint            solana.PublicKey
	Authority       solana.PublicKey
	Amount          uint64
	Delegate        solana.PublicKey
	DelegatedAmount uint64
}

// Account is the stored form of one ledger account.
type Account struct {
	Owner      solana.PublicKey
	Lamports   uint64
	Executable bool
	Space      uint64
	IsToken    bool
	Token      TokenAccount
	Data       []byte
}

// InUse reports whether the account has been created.
func (a Account) InUse() bool {
	return a.Lamports > 0 || !a.Owner.IsZero() || a.Executable || a.IsToken
}

func (a Account) ref(key solana.PublicKey, signer, writable bool) account.Ref {
	r := account.Ref{
		Key:        key,
		Owner:      a.Owner,
		Lamports:   a.Lamports,
		Executable: a.Executable,
		IsSigner:   signer,
		IsWritable: writable,
	}
	if a.IsToken {
		r.Token = &account.TokenState{
			Mint:            a.Token.Mint,
			Authority:       a.Token.Authority,
			Amount:          a.Token.Amount,
			Delegate:        a.Token.Delegate,
			DelegatedAmount: a.Token.DelegatedAmount,
		}
	}
	return r
}

// FromRef converts a call-time account view into its stored form.
func FromRef(r account.Ref) Account {
	a := Account{Owner: r.Owner, Lamports: r.Lamports, Executable: r.Executable}
	if r.Token != nil {
		a.IsToken = true
		a.Token = TokenAccount{
			Mint:            r.Token.Mint,
			Authority:       r.Token.Authority,
			Amount:          r.Token.Amount,
			Delegate:        r.Token.Delegate,
			DelegatedAmount: r.Token.DelegatedAmount,
		}
	}
	return a
}

func encodeAccount(a Account) ([]byte, error) {
	b, err := bin.MarshalBorsh(a)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return b, nil
}

func decodeAccount(b []byte) (Account, error) {
	var a Account
	if err := bin.UnmarshalBorsh(&a, b); err != nil {
		return Account{}, fmt.Errorf("decode account: %w", err)
	}
	return a, nil
}

type EventKind uint8

const (
	EventAccountCreated EventKind = iota + 1
	EventTransfer
	EventApprove
	EventSwap
	EventBridgeMessage
)

func (k EventKind) String() string {
	switch k {
	case EventAccountCreated:
		return "account_created"
	case EventTransfer:
		return "transfer"
	case EventApprove:
		return "approve"
	case EventSwap:
		return "swap"
	case EventBridgeMessage:
		return "bridge_message"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one effect of a committed call, in the order it happened.
type Event struct {
	Call        crypto.Hash
	Kind        EventKind
	Source      solana.PublicKey
	Destination solana.PublicKey
	Amount      uint64
	// Sequence and Digest are set for bridge messages.
	Sequence uint64
	Digest   crypto.Hash
}

func eventKey(n uint64) []byte {
	return makeKey(prefixEvent, encodeUint64BE(n))
}

func encodeUint64BE(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func encodeUint64(n uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, n)
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("want 8 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func encodeEvent(e Event) ([]byte, error) {
	b, err := bin.MarshalBorsh(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

func decodeEvent(b []byte) (Event, error) {
	var e Event
	if err := bin.UnmarshalBorsh(&e, b); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
