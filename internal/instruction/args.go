package instruction

import "github.com/OpenAudio/solana-programs/internal/account"

type RouteArgs struct {
	Bump    uint8
	Amounts []uint64
	Total   uint64
}

func (a RouteArgs) Bumps() map[account.Role]uint8 {
	return map[account.Role]uint8{RoleSenderOwner: a.Bump}
}

type SwapArgs struct {
	AmountIn         uint64
	MinimumAmountOut uint64
	VaultNonce       uint64
	Bump             uint8
}

func (a SwapArgs) Bumps() map[account.Role]uint8 {
	return map[account.Role]uint8{RoleUserSourceOwner: a.Bump}
}

// BridgeArgs carries the bridge message fields followed by the bump of every
// derived account the deposit touches.
type BridgeArgs struct {
	Nonce         uint32
	Amount        uint64
	Fee           uint64
	TargetAddress [32]byte
	TargetChain   uint16

	ConfigBump          uint8
	WrappedMintBump     uint8
	WrappedMetaBump     uint8
	AuthoritySignerBump uint8
	BridgeConfigBump    uint8
	EmitterBump         uint8
	SequenceBump        uint8
	FeeCollectorBump    uint8
	BalanceBump         uint8
}

func (a BridgeArgs) Bumps() map[account.Role]uint8 {
	return map[account.Role]uint8{
		RoleConfig:          a.ConfigBump,
		RoleWrappedMint:     a.WrappedMintBump,
		RoleWrappedMeta:     a.WrappedMetaBump,
		RoleAuthoritySigner: a.AuthoritySignerBump,
		RoleBridgeConfig:    a.BridgeConfigBump,
		RoleEmitter:         a.EmitterBump,
		RoleSequence:        a.SequenceBump,
		RoleFeeCollector:    a.FeeCollectorBump,
		RoleFromOwner:       a.BalanceBump,
	}
}

// Message is the payload the bridge publishes for a deposit.
type Message struct {
	Nonce         uint32
	Amount        uint64
	Fee           uint64
	TargetAddress [32]byte
	TargetChain   uint16
}

func (a BridgeArgs) Message() Message {
	return Message{
		Nonce:         a.Nonce,
		Amount:        a.Amount,
		Fee:           a.Fee,
		TargetAddress: a.TargetAddress,
		TargetChain:   a.TargetChain,
	}
}
