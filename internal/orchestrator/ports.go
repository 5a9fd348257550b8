package orchestrator

import (
	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/address"
)

// TokenProgram moves and delegates token balances. Authority and Owner carry
// the derived address whose signer seeds authorize the call.
type TokenProgram interface {
	Transfer(TransferRequest) error
	Approve(ApproveRequest) error
}

type SystemProgram interface {
	CreateAccount(CreateAccountRequest) error
}

type SwapEngine interface {
	SwapBaseIn(SwapRequest) error
}

type Bridge interface {
	TransferWrapped(BridgeTransferRequest) error
}

// Ports bundles the collaborators a call may reach.
type Ports struct {
	Token  TokenProgram
	System SystemProgram
	Swap   SwapEngine
	Bridge Bridge
}

type TransferRequest struct {
	Program     solana.PublicKey
	Source      solana.PublicKey
	Destination solana.PublicKey
	Authority   address.Derived
	Amount      uint64
}

type ApproveRequest struct {
	Program  solana.PublicKey
	Source   solana.PublicKey
	Delegate solana.PublicKey
	Owner    address.Derived
	Amount   uint64
}

type CreateAccountRequest struct {
	Program solana.PublicKey
	Payer   solana.PublicKey
	Account address.Derived
	Space   uint64
	// Owner is the program that will own the new account.
	Owner solana.PublicKey
}

// SwapRequest names the pool and order-book accounts of a base-in swap in the
// order the engine expects them.
type SwapRequest struct {
	Program          solana.PublicKey
	AMM              solana.PublicKey
	AMMAuthority     solana.PublicKey
	AMMOpenOrders    solana.PublicKey
	AMMTargetOrders  solana.PublicKey
	PoolCoin         solana.PublicKey
	PoolPC           solana.PublicKey
	SerumProgram     solana.PublicKey
	SerumMarket      solana.PublicKey
	SerumBids        solana.PublicKey
	SerumAsks        solana.PublicKey
	SerumEventQueue  solana.PublicKey
	SerumCoinVault   solana.PublicKey
	SerumPCVault     solana.PublicKey
	SerumVaultSigner solana.PublicKey
	UserSource       solana.PublicKey
	UserDestination  solana.PublicKey
	UserOwner        address.Derived
	TokenProgram     solana.PublicKey
	AmountIn         uint64
	MinimumAmountOut uint64
}

type BridgeTransferRequest struct {
	Program         solana.PublicKey
	CoreBridge      solana.PublicKey
	Payer           solana.PublicKey
	Config          solana.PublicKey
	From            solana.PublicKey
	FromOwner       address.Derived
	WrappedMint     solana.PublicKey
	WrappedMeta     solana.PublicKey
	AuthoritySigner solana.PublicKey
	BridgeConfig    solana.PublicKey
	Message         solana.PublicKey
	Emitter         solana.PublicKey
	Sequence        solana.PublicKey
	FeeCollector    solana.PublicKey
	Clock           solana.PublicKey
	Rent            solana.PublicKey

	Nonce         uint32
	Amount        uint64
	Fee           uint64
	TargetAddress [32]byte
	TargetChain   uint16
}
