// Package instruction decodes calls into an operation, its arguments and its
// accounts bound to roles.
//
// Call data is an 8 byte selector, sha256("global:<name>")[:8], followed by
// the Borsh encoding of the operation's arguments. Accounts are positional:
// the first len(Layout.Roles) accounts take the layout's roles in order, the
// rest are remaining accounts.
package instruction

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/account"
)

var (
	ErrUnknownInstruction     = errors.New("unknown instruction")
	ErrInvalidInstructionData = errors.New("invalid instruction data")
	ErrNotEnoughAccounts      = errors.New("not enough accounts")
)

const DiscriminatorSize = 8

type Kind uint8

const (
	KindInitBalance Kind = iota + 1
	KindRoute
	KindSwap
	KindBridge
)

func (k Kind) String() string {
	switch k {
	case KindInitBalance:
		return "init-balance"
	case KindRoute:
		return "route-payment"
	case KindSwap:
		return "swap"
	case KindBridge:
		return "bridge-deposit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Selector names.
const (
	CreatePaymentRouterBalance = "create_payment_router_balance_pda"
	Route                      = "route"
	CreateStakingBridgeBalance = "create_staking_bridge_balance_pda"
	RaydiumSwap                = "raydium_swap"
	PostWormholeMessage        = "post_wormhole_message"
)

// Layout describes the wire shape of one selector.
type Layout struct {
	Name  string
	Kind  Kind
	Roles []account.Role
	// Remaining is true when the operation consumes the accounts after Roles.
	Remaining bool
}

var layouts = []Layout{
	{Name: CreatePaymentRouterBalance, Kind: KindInitBalance, Roles: initRoles},
	{Name: Route, Kind: KindRoute, Roles: routeRoles, Remaining: true},
	{Name: CreateStakingBridgeBalance, Kind: KindInitBalance, Roles: initRoles},
	{Name: RaydiumSwap, Kind: KindSwap, Roles: swapRoles},
	{Name: PostWormholeMessage, Kind: KindBridge, Roles: bridgeRoles},
}

var bySelector = func() map[[DiscriminatorSize]byte]Layout {
	m := make(map[[DiscriminatorSize]byte]Layout, len(layouts))
	for _, l := range layouts {
		m[Discriminator(l.Name)] = l
	}
	return m
}()

// Discriminator returns the selector of the named operation.
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// LayoutOf returns the layout of the named operation.
func LayoutOf(name string) (Layout, bool) {
	for _, l := range layouts {
		if l.Name == name {
			return l, true
		}
	}
	return Layout{}, false
}

// Call is one invocation of a program as the ledger hands it over.
type Call struct {
	Program  solana.PublicKey
	Data     []byte
	Accounts []account.Ref
}

// Instruction is a decoded call. Exactly one of the argument pointers is set
// for the argument-carrying kinds.
type Instruction struct {
	Layout    Layout
	Route     *RouteArgs
	Swap      *SwapArgs
	Bridge    *BridgeArgs
	Accounts  map[account.Role]account.Ref
	Remaining []account.Ref
}

// Bumps returns the caller-supplied bump of every role that carries one.
func (in Instruction) Bumps() map[account.Role]uint8 {
	switch {
	case in.Route != nil:
		return in.Route.Bumps()
	case in.Swap != nil:
		return in.Swap.Bumps()
	case in.Bridge != nil:
		return in.Bridge.Bumps()
	}
	return map[account.Role]uint8{}
}

func Decode(call Call) (Instruction, error) {
	if len(call.Data) < DiscriminatorSize {
		return Instruction{}, fmt.Errorf("%w: %d bytes, want at least %d", ErrInvalidInstructionData, len(call.Data), DiscriminatorSize)
	}
	var sel [DiscriminatorSize]byte
	copy(sel[:], call.Data)
	layout, ok := bySelector[sel]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: selector %x", ErrUnknownInstruction, sel)
	}

	in := Instruction{Layout: layout}
	payload := call.Data[DiscriminatorSize:]
	var err error
	switch layout.Kind {
	case KindInitBalance:
		if len(payload) != 0 {
			err = fmt.Errorf("%w: %s takes no arguments", ErrInvalidInstructionData, layout.Name)
		}
	case KindRoute:
		if err = checkRouteLength(payload); err == nil {
			in.Route, err = decodeArgs[RouteArgs](payload)
		}
	case KindSwap:
		in.Swap, err = decodeArgs[SwapArgs](payload)
	case KindBridge:
		in.Bridge, err = decodeArgs[BridgeArgs](payload)
	}
	if err != nil {
		return Instruction{}, err
	}

	if len(call.Accounts) < len(layout.Roles) {
		return Instruction{}, fmt.Errorf("%w: %s needs %d, got %d", ErrNotEnoughAccounts, layout.Name, len(layout.Roles), len(call.Accounts))
	}
	in.Accounts = make(map[account.Role]account.Ref, len(layout.Roles))
	for i, role := range layout.Roles {
		in.Accounts[role] = call.Accounts[i]
	}
	in.Remaining = call.Accounts[len(layout.Roles):]
	return in, nil
}

func decodeArgs[T any](payload []byte) (*T, error) {
	v := new(T)
	if err := bin.NewBorshDecoder(payload).Decode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	// Borsh has exactly one encoding per value, so a re-encoding of a
	// different length means trailing bytes.
	enc, err := bin.MarshalBorsh(*v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	if !bytes.Equal(enc, payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidInstructionData, len(payload)-len(enc))
	}
	return v, nil
}

// checkRouteLength rejects an amounts vector whose declared length exceeds
// the bytes present, before the decoder allocates it.
func checkRouteLength(payload []byte) error {
	const lenOffset = 1 // after bump
	if len(payload) < lenOffset+4 {
		return fmt.Errorf("%w: route arguments truncated", ErrInvalidInstructionData)
	}
	n := uint64(binary.LittleEndian.Uint32(payload[lenOffset:]))
	if n*8 > uint64(len(payload)-lenOffset-4) {
		return fmt.Errorf("%w: %d amounts declared, payload too short", ErrInvalidInstructionData, n)
	}
	return nil
}

// Encode builds call data for the named operation. args is nil for
// init-balance.
func Encode(name string, args interface{}) ([]byte, error) {
	if _, ok := LayoutOf(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, name)
	}
	d := Discriminator(name)
	data := append([]byte(nil), d[:]...)
	if args == nil {
		return data, nil
	}
	enc, err := bin.MarshalBorsh(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return append(data, enc...), nil
}

// Order lays out accounts by role for the named operation, followed by
// remaining.
func Order(name string, accounts map[account.Role]account.Ref, remaining ...account.Ref) ([]account.Ref, error) {
	layout, ok := LayoutOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, name)
	}
	out := make([]account.Ref, 0, len(layout.Roles)+len(remaining))
	for _, role := range layout.Roles {
		ref, ok := accounts[role]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %s", ErrNotEnoughAccounts, name, role)
		}
		out = append(out, ref)
	}
	return append(out, remaining...), nil
}
