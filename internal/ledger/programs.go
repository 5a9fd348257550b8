package ledger

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/address"
	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/crypto"
	"github.com/OpenAudio/solana-programs/internal/instruction"
	"github.com/OpenAudio/solana-programs/internal/orchestrator"
	"github.com/OpenAudio/solana-programs/internal/plan"
	"github.com/OpenAudio/solana-programs/internal/safemath"
)

// Swap fee charged by the reference pool, in basis points of the input.
const (
	SwapFeeBps   = 25
	bpsPerUnit   = 10_000
	rentPerByte  = 3_480
	rentExemptYr = 2
	// accountOverhead is the storage the ledger charges for every account on
	// top of its data.
	accountOverhead = 128
)

// RentExemptMinimum is the balance an account of space bytes must hold.
func RentExemptMinimum(space uint64) uint64 {
	return (accountOverhead + space) * rentPerByte * rentExemptYr
}

// programs are the reference collaborators of one call. They act on the
// call's overlay only.
type programs struct {
	tx  *tx
	cfg config.Config
}

func (l *Ledger) ports(t *tx) orchestrator.Ports {
	p := &programs{tx: t, cfg: l.cfg}
	return orchestrator.Ports{
		Token:  tokenProgram{p},
		System: systemProgram{p},
		Swap:   swapEngine{p},
		Bridge: bridge{p},
	}
}

func (p *programs) tokenAccount(key solana.PublicKey) (Account, error) {
	a, err := p.tx.load(key)
	if err != nil {
		return Account{}, err
	}
	if !a.IsToken || !a.Owner.Equals(p.cfg.TokenProgram) {
		return Account{}, fmt.Errorf("%w: %s", ErrNotTokenAccount, key)
	}
	return a, nil
}

// signedBy reports whether the call carries a signature for addr, either a
// key signature or the calling program's seeds for one of its own derived
// addresses.
func (p *programs) signedBy(d address.Derived) bool {
	if p.tx.signed(d.Address) {
		return true
	}
	return address.Authenticate(d.SignerSeeds(), d.Address, p.tx.caller)
}

// authorize lets authority spend amount from a: as the account's authority,
// or as its delegate within the delegated amount.
func (p *programs) authorize(a *Account, authority address.Derived, amount uint64) error {
	if !p.signedBy(authority) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, authority.Address)
	}
	switch {
	case a.Token.Authority.Equals(authority.Address):
		return nil
	case a.Token.Delegate.Equals(authority.Address):
		left, ok := safemath.Sub64(a.Token.DelegatedAmount, amount)
		if !ok {
			return fmt.Errorf("%w: delegated %d, need %d", ErrInsufficientFunds, a.Token.DelegatedAmount, amount)
		}
		a.Token.DelegatedAmount = left
		return nil
	default:
		return fmt.Errorf("%w: %s is not the authority", ErrOwnerMismatch, authority.Address)
	}
}

func debit(a *Account, amount uint64) error {
	left, ok := safemath.Sub64(a.Token.Amount, amount)
	if !ok {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, a.Token.Amount, amount)
	}
	a.Token.Amount = left
	return nil
}

func credit(a *Account, amount uint64) error {
	total, ok := safemath.Add64(a.Token.Amount, amount)
	if !ok {
		return safemath.ErrOverflow
	}
	a.Token.Amount = total
	return nil
}

type tokenProgram struct{ *programs }

func (p tokenProgram) Transfer(req orchestrator.TransferRequest) error {
	if !req.Program.Equals(p.cfg.TokenProgram) {
		return fmt.Errorf("%w: %s", ErrProgramMismatch, req.Program)
	}
	src, err := p.tokenAccount(req.Source)
	if err != nil {
		return err
	}
	dst, err := p.tokenAccount(req.Destination)
	if err != nil {
		return err
	}
	if !src.Token.Mint.Equals(dst.Token.Mint) {
		return fmt.Errorf("%w: %s holds %s, not %s", ErrTokenMintMismatch, req.Destination, dst.Token.Mint, src.Token.Mint)
	}
	if err := p.authorize(&src, req.Authority, req.Amount); err != nil {
		return err
	}
	if err := debit(&src, req.Amount); err != nil {
		return err
	}
	if err := p.tx.save(req.Source, src); err != nil {
		return err
	}
	// re-read so a self-transfer sees the debit
	dst, err = p.tokenAccount(req.Destination)
	if err != nil {
		return err
	}
	if err := credit(&dst, req.Amount); err != nil {
		return err
	}
	if err := p.tx.save(req.Destination, dst); err != nil {
		return err
	}
	p.tx.emit(Event{Kind: EventTransfer, Source: req.Source, Destination: req.Destination, Amount: req.Amount})
	return nil
}

func (p tokenProgram) Approve(req orchestrator.ApproveRequest) error {
	if !req.Program.Equals(p.cfg.TokenProgram) {
		return fmt.Errorf("%w: %s", ErrProgramMismatch, req.Program)
	}
	src, err := p.tokenAccount(req.Source)
	if err != nil {
		return err
	}
	if !p.signedBy(req.Owner) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, req.Owner.Address)
	}
	if !src.Token.Authority.Equals(req.Owner.Address) {
		return fmt.Errorf("%w: %s is not the authority", ErrOwnerMismatch, req.Owner.Address)
	}
	src.Token.Delegate = req.Delegate
	src.Token.DelegatedAmount = req.Amount
	if err := p.tx.save(req.Source, src); err != nil {
		return err
	}
	p.tx.emit(Event{Kind: EventApprove, Source: req.Source, Destination: req.Delegate, Amount: req.Amount})
	return nil
}

type systemProgram struct{ *programs }

func (p systemProgram) CreateAccount(req orchestrator.CreateAccountRequest) error {
	if !req.Program.Equals(p.cfg.SystemProgram) {
		return fmt.Errorf("%w: %s", ErrProgramMismatch, req.Program)
	}
	if !p.tx.signed(req.Payer) {
		return fmt.Errorf("%w: payer %s", ErrMissingSigner, req.Payer)
	}
	existing, err := p.tx.load(req.Account.Address)
	if err != nil {
		return err
	}
	if existing.InUse() {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, req.Account.Address)
	}
	if !p.signedBy(req.Account) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, req.Account.Address)
	}

	payer, err := p.tx.load(req.Payer)
	if err != nil {
		return err
	}
	rent := RentExemptMinimum(req.Space)
	left, ok := safemath.Sub64(payer.Lamports, rent)
	if !ok {
		return fmt.Errorf("%w: payer has %d lamports, need %d", ErrInsufficientFunds, payer.Lamports, rent)
	}
	payer.Lamports = left
	if err := p.tx.save(req.Payer, payer); err != nil {
		return err
	}
	created := Account{Owner: req.Owner, Lamports: rent, Space: req.Space, Data: make([]byte, req.Space)}
	if err := p.tx.save(req.Account.Address, created); err != nil {
		return err
	}
	p.tx.emit(Event{Kind: EventAccountCreated, Source: req.Payer, Destination: req.Account.Address, Amount: rent})
	return nil
}

// swapEngine is a constant-product pool over the pool's two token accounts.
type swapEngine struct{ *programs }

// SwapOut is the output of a constant-product swap of amountIn after the
// pool fee, or false when the arithmetic does not fit in 64 bits.
func SwapOut(amountIn, reserveIn, reserveOut uint64) (uint64, bool) {
	fee, ok := safemath.MulDiv64(amountIn, SwapFeeBps, bpsPerUnit)
	if !ok {
		return 0, false
	}
	in := amountIn - fee
	denom, ok := safemath.Add64(reserveIn, in)
	if !ok {
		return 0, false
	}
	return safemath.MulDiv64(in, reserveOut, denom)
}

func (p swapEngine) SwapBaseIn(req orchestrator.SwapRequest) error {
	if !req.Program.Equals(p.cfg.AMMProgram) {
		return fmt.Errorf("%w: %s", ErrProgramMismatch, req.Program)
	}
	src, err := p.tokenAccount(req.UserSource)
	if err != nil {
		return err
	}
	dst, err := p.tokenAccount(req.UserDestination)
	if err != nil {
		return err
	}
	coin, err := p.tokenAccount(req.PoolCoin)
	if err != nil {
		return err
	}
	pc, err := p.tokenAccount(req.PoolPC)
	if err != nil {
		return err
	}

	poolInKey, poolOutKey := req.PoolPC, req.PoolCoin
	poolIn, poolOut := pc, coin
	switch {
	case src.Token.Mint.Equals(pc.Token.Mint):
	case src.Token.Mint.Equals(coin.Token.Mint):
		poolInKey, poolOutKey = req.PoolCoin, req.PoolPC
		poolIn, poolOut = coin, pc
	default:
		return fmt.Errorf("%w: pool does not trade %s", ErrTokenMintMismatch, src.Token.Mint)
	}
	if !dst.Token.Mint.Equals(poolOut.Token.Mint) {
		return fmt.Errorf("%w: destination holds %s, pool pays %s", ErrTokenMintMismatch, dst.Token.Mint, poolOut.Token.Mint)
	}
	if poolIn.Token.Amount == 0 || poolOut.Token.Amount == 0 {
		return ErrEmptyPool
	}

	out, ok := SwapOut(req.AmountIn, poolIn.Token.Amount, poolOut.Token.Amount)
	if !ok {
		return safemath.ErrOverflow
	}
	if out < req.MinimumAmountOut {
		return fmt.Errorf("%w: %d < %d", ErrSlippage, out, req.MinimumAmountOut)
	}

	if err := p.authorize(&src, req.UserOwner, req.AmountIn); err != nil {
		return err
	}
	if err := debit(&src, req.AmountIn); err != nil {
		return err
	}
	if err := credit(&poolIn, req.AmountIn); err != nil {
		return err
	}
	if err := debit(&poolOut, out); err != nil {
		return err
	}
	if err := credit(&dst, out); err != nil {
		return err
	}
	for _, w := range []struct {
		key solana.PublicKey
		acc Account
	}{
		{req.UserSource, src},
		{poolInKey, poolIn},
		{poolOutKey, poolOut},
		{req.UserDestination, dst},
	} {
		if err := p.tx.save(w.key, w.acc); err != nil {
			return err
		}
	}
	p.tx.emit(Event{Kind: EventSwap, Source: req.UserSource, Destination: req.UserDestination, Amount: out})
	return nil
}

// bridge burns wrapped tokens and publishes a transfer message on the core
// bridge.
type bridge struct{ *programs }

func (p bridge) TransferWrapped(req orchestrator.BridgeTransferRequest) error {
	if !req.Program.Equals(p.cfg.TokenBridge) {
		return fmt.Errorf("%w: %s", ErrProgramMismatch, req.Program)
	}
	if !req.CoreBridge.Equals(p.cfg.CoreBridge) {
		return fmt.Errorf("%w: core bridge %s", ErrProgramMismatch, req.CoreBridge)
	}
	if !p.tx.signed(req.Payer) {
		return fmt.Errorf("%w: payer %s", ErrMissingSigner, req.Payer)
	}
	if !p.tx.signed(req.Message) {
		return fmt.Errorf("%w: message %s", ErrMissingSigner, req.Message)
	}
	if !p.signedBy(req.FromOwner) {
		return fmt.Errorf("%w: %s", ErrMissingSigner, req.FromOwner.Address)
	}
	if err := plan.ValidateFee(req.Amount, req.Fee); err != nil {
		return err
	}

	from, err := p.tokenAccount(req.From)
	if err != nil {
		return err
	}
	if !from.Token.Mint.Equals(req.WrappedMint) {
		return fmt.Errorf("%w: %s is not wrapped mint %s", ErrTokenMintMismatch, from.Token.Mint, req.WrappedMint)
	}
	// The token bridge spends through its authority signer's allowance.
	if !from.Token.Delegate.Equals(req.AuthoritySigner) {
		return fmt.Errorf("%w: %s is not the delegate", ErrOwnerMismatch, req.AuthoritySigner)
	}
	allowance, ok := safemath.Sub64(from.Token.DelegatedAmount, req.Amount)
	if !ok {
		return fmt.Errorf("%w: allowance %d, need %d", ErrInsufficientFunds, from.Token.DelegatedAmount, req.Amount)
	}
	from.Token.DelegatedAmount = allowance
	if err := debit(&from, req.Amount); err != nil {
		return err
	}
	if err := p.tx.save(req.From, from); err != nil {
		return err
	}

	seqAcc, err := p.tx.load(req.Sequence)
	if err != nil {
		return err
	}
	var seq uint64
	if len(seqAcc.Data) > 0 {
		if seq, err = decodeUint64(seqAcc.Data); err != nil {
			return fmt.Errorf("sequence %s: %w", req.Sequence, err)
		}
	}
	seqAcc.Owner = p.cfg.CoreBridge
	seqAcc.Data = binary.LittleEndian.AppendUint64(nil, seq+1)
	if err := p.tx.save(req.Sequence, seqAcc); err != nil {
		return err
	}

	payload, err := bin.MarshalBorsh(instruction.Message{
		Nonce:         req.Nonce,
		Amount:        req.Amount,
		Fee:           req.Fee,
		TargetAddress: req.TargetAddress,
		TargetChain:   req.TargetChain,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	msgAcc, err := p.tx.load(req.Message)
	if err != nil {
		return err
	}
	msgAcc.Owner = p.cfg.CoreBridge
	msgAcc.Data = payload
	if err := p.tx.save(req.Message, msgAcc); err != nil {
		return err
	}

	p.tx.emit(Event{
		Kind:     EventBridgeMessage,
		Source:   req.From,
		Amount:   req.Amount,
		Sequence: seq,
		Digest:   crypto.KeccakData(payload),
	})
	return nil
}
