// Package orchestrator turns a validated call into collaborator calls. It
// runs strictly after every validation step has passed and never compensates:
// the first failing collaborator ends the call and the ledger discards all of
// its effects.
package orchestrator

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/address"
	"github.com/OpenAudio/solana-programs/internal/instruction"
)

// BalanceSpace is the size of a program-owned balance record.
const BalanceSpace = 8

func derived(ctx *account.Context, role account.Role) (address.Derived, error) {
	d, ok := ctx.Derived(role)
	if !ok {
		return address.Derived{}, fmt.Errorf("%w: %s", ErrUnverifiedAccount, role)
	}
	return d, nil
}

// InitBalance creates the program-owned balance at its derived address,
// signed by the address's own seeds.
func (p Ports) InitBalance(ctx *account.Context, program solana.PublicKey) error {
	if p.System == nil {
		return failed(SystemCollaborator, "create_account", ErrNoCollaborator)
	}
	balance, err := derived(ctx, instruction.RoleBalance)
	if err != nil {
		return err
	}
	err = p.System.CreateAccount(CreateAccountRequest{
		Program: ctx.Key(instruction.RoleSystemProgram),
		Payer:   ctx.Key(instruction.RolePayer),
		Account: balance,
		Space:   BalanceSpace,
		Owner:   program,
	})
	if err != nil {
		return failed(SystemCollaborator, "create_account", err)
	}
	return nil
}

// RoutePayment transfers amounts[i] to recipients[i], in order, one transfer
// per recipient. The plan must already be validated.
func (p Ports) RoutePayment(ctx *account.Context, recipients []account.Ref, amounts []uint64) error {
	if p.Token == nil {
		return failed(TokenCollaborator, "transfer", ErrNoCollaborator)
	}
	authority, err := derived(ctx, instruction.RoleSenderOwner)
	if err != nil {
		return err
	}
	program := ctx.Key(instruction.RoleTokenProgram)
	source := ctx.Key(instruction.RoleSender)
	for i, recipient := range recipients {
		err := p.Token.Transfer(TransferRequest{
			Program:     program,
			Source:      source,
			Destination: recipient.Key,
			Authority:   authority,
			Amount:      amounts[i],
		})
		if err != nil {
			return failed(TokenCollaborator, fmt.Sprintf("transfer to recipient %d", i), err)
		}
	}
	return nil
}

// ExecuteSwap sells args.AmountIn of the source token through the pool in one
// base-in swap. The engine enforces args.MinimumAmountOut.
func (p Ports) ExecuteSwap(ctx *account.Context, args instruction.SwapArgs) error {
	if p.Swap == nil {
		return failed(SwapCollaborator, "swap_base_in", ErrNoCollaborator)
	}
	owner, err := derived(ctx, instruction.RoleUserSourceOwner)
	if err != nil {
		return err
	}
	err = p.Swap.SwapBaseIn(SwapRequest{
		Program:          ctx.Key(instruction.RoleAMMProgram),
		AMM:              ctx.Key(instruction.RoleAMM),
		AMMAuthority:     ctx.Key(instruction.RoleAMMAuthority),
		AMMOpenOrders:    ctx.Key(instruction.RoleAMMOpenOrders),
		AMMTargetOrders:  ctx.Key(instruction.RoleAMMTargetOrders),
		PoolCoin:         ctx.Key(instruction.RolePoolCoinTokenAccount),
		PoolPC:           ctx.Key(instruction.RolePoolPCTokenAccount),
		SerumProgram:     ctx.Key(instruction.RoleSerumProgram),
		SerumMarket:      ctx.Key(instruction.RoleSerumMarket),
		SerumBids:        ctx.Key(instruction.RoleSerumBids),
		SerumAsks:        ctx.Key(instruction.RoleSerumAsks),
		SerumEventQueue:  ctx.Key(instruction.RoleSerumEventQueue),
		SerumCoinVault:   ctx.Key(instruction.RoleSerumCoinVault),
		SerumPCVault:     ctx.Key(instruction.RoleSerumPCVault),
		SerumVaultSigner: ctx.Key(instruction.RoleSerumVaultSigner),
		UserSource:       ctx.Key(instruction.RoleUserSource),
		UserDestination:  ctx.Key(instruction.RoleUserDestination),
		UserOwner:        owner,
		TokenProgram:     ctx.Key(instruction.RoleTokenProgram),
		AmountIn:         args.AmountIn,
		MinimumAmountOut: args.MinimumAmountOut,
	})
	if err != nil {
		return failed(SwapCollaborator, "swap_base_in", err)
	}
	return nil
}

// BridgeDeposit approves the bridge's authority signer for exactly
// args.Amount and then hands the wrapped tokens to the bridge.
func (p Ports) BridgeDeposit(ctx *account.Context, args instruction.BridgeArgs) error {
	if p.Token == nil {
		return failed(TokenCollaborator, "approve", ErrNoCollaborator)
	}
	if p.Bridge == nil {
		return failed(BridgeCollaborator, "transfer_wrapped", ErrNoCollaborator)
	}
	owner, err := derived(ctx, instruction.RoleFromOwner)
	if err != nil {
		return err
	}
	from := ctx.Key(instruction.RoleFrom)
	authoritySigner := ctx.Key(instruction.RoleAuthoritySigner)

	err = p.Token.Approve(ApproveRequest{
		Program:  ctx.Key(instruction.RoleTokenProgram),
		Source:   from,
		Delegate: authoritySigner,
		Owner:    owner,
		Amount:   args.Amount,
	})
	if err != nil {
		return failed(TokenCollaborator, "approve", err)
	}

	err = p.Bridge.TransferWrapped(BridgeTransferRequest{
		Program:         ctx.Key(instruction.RoleTokenBridgeProgram),
		CoreBridge:      ctx.Key(instruction.RoleCoreBridgeProgram),
		Payer:           ctx.Key(instruction.RolePayer),
		Config:          ctx.Key(instruction.RoleConfig),
		From:            from,
		FromOwner:       owner,
		WrappedMint:     ctx.Key(instruction.RoleWrappedMint),
		WrappedMeta:     ctx.Key(instruction.RoleWrappedMeta),
		AuthoritySigner: authoritySigner,
		BridgeConfig:    ctx.Key(instruction.RoleBridgeConfig),
		Message:         ctx.Key(instruction.RoleMessage),
		Emitter:         ctx.Key(instruction.RoleEmitter),
		Sequence:        ctx.Key(instruction.RoleSequence),
		FeeCollector:    ctx.Key(instruction.RoleFeeCollector),
		Clock:           ctx.Key(instruction.RoleClock),
		Rent:            ctx.Key(instruction.RoleRent),
		Nonce:           args.Nonce,
		Amount:          args.Amount,
		Fee:             args.Fee,
		TargetAddress:   args.TargetAddress,
		TargetChain:     args.TargetChain,
	})
	if err != nil {
		return failed(BridgeCollaborator, "transfer_wrapped", err)
	}
	return nil
}
