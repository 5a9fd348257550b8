// Package testutils builds complete, valid calls for every operation so tests
// can mutate one account or argument and observe the rejection.
package testutils

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/address"
	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/crypto/ed25519"
	"github.com/OpenAudio/solana-programs/internal/instruction"
)

// Pool reserves seeded into every swap scenario.
const (
	PoolCoinReserve uint64 = 1_000_000
	PoolPCReserve   uint64 = 1_000_000
)

func RandomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	return solana.NewWallet().PublicKey()
}

// Config returns a valid configuration with fresh program ids for our two
// programs. The audio mint is the token bridge's wrapped mint so that bridge
// deposits resolve to a consistent token.
func Config(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.PaymentRouter.ID = RandomKey(t)
	cfg.StakingBridge.ID = RandomKey(t)
	cfg.Bridge.TargetAddress[31] = 0x42
	wrapped, err := cfg.WrappedMint()
	require.NoError(t, err)
	cfg.AudioMint = wrapped
	require.NoError(t, cfg.Validate())
	return cfg
}

func find(t *testing.T, program solana.PublicKey, seeds ...[]byte) address.Derived {
	t.Helper()
	d, err := address.Find(seeds, program)
	require.NoError(t, err)
	return d
}

// Scenario is one call with every account it touches.
type Scenario struct {
	Program   solana.PublicKey
	Name      string
	Accounts  map[account.Role]account.Ref
	Remaining []account.Ref
	// Args is nil, or one of the instruction argument structs.
	Args interface{}
	// Keys holds the private key of every signer account.
	Keys []ed25519.PrivateKey
}

// Call encodes the scenario as the ledger would hand it to a program.
func (s Scenario) Call(t *testing.T) instruction.Call {
	t.Helper()
	data, err := instruction.Encode(s.Name, s.Args)
	require.NoError(t, err)
	accounts, err := instruction.Order(s.Name, s.Accounts, s.Remaining...)
	require.NoError(t, err)
	return instruction.Call{Program: s.Program, Data: data, Accounts: accounts}
}

// All returns every distinct account of the scenario.
func (s Scenario) All() []account.Ref {
	seen := make(map[solana.PublicKey]bool)
	var out []account.Ref
	add := func(r account.Ref) {
		if !seen[r.Key] {
			seen[r.Key] = true
			out = append(out, r)
		}
	}
	for _, role := range orderedRoles(s.Name) {
		add(s.Accounts[role])
	}
	for _, r := range s.Remaining {
		add(r)
	}
	return out
}

func orderedRoles(name string) []account.Role {
	layout, _ := instruction.LayoutOf(name)
	return layout.Roles
}

// Set replaces the account playing role.
func (s Scenario) Set(role account.Role, mutate func(*account.Ref)) Scenario {
	accounts := make(map[account.Role]account.Ref, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts[k] = v
	}
	ref := accounts[role]
	if ref.Token != nil {
		tok := *ref.Token
		ref.Token = &tok
	}
	mutate(&ref)
	accounts[role] = ref
	s.Accounts = accounts
	return s
}

func program(key solana.PublicKey) account.Ref {
	return account.Ref{Key: key, Executable: true}
}

// signer returns a funded signer account and its private key.
func signer(t *testing.T) (account.Ref, ed25519.PrivateKey) {
	t.Helper()
	w := solana.NewWallet()
	ref := account.Ref{
		Key:        w.PublicKey(),
		Owner:      solana.SystemProgramID,
		Lamports:   1_000_000_000,
		IsSigner:   true,
		IsWritable: true,
	}
	return ref, ed25519.PrivateKey(w.PrivateKey)
}

func plain(key, owner solana.PublicKey, writable bool) account.Ref {
	return account.Ref{Key: key, Owner: owner, IsWritable: writable}
}

// TokenAccount returns a writable token account.
func TokenAccount(key, tokenProgram, mint, authority solana.PublicKey, amount uint64) account.Ref {
	return account.Ref{
		Key:        key,
		Owner:      tokenProgram,
		IsWritable: true,
		Token:      &account.TokenState{Mint: mint, Authority: authority, Amount: amount},
	}
}

// InitBalance creates the program-owned balance of prog.
func InitBalance(t *testing.T, cfg config.Config, prog config.Program) Scenario {
	t.Helper()
	name := instruction.CreatePaymentRouterBalance
	if prog.ID.Equals(cfg.StakingBridge.ID) {
		name = instruction.CreateStakingBridgeBalance
	}
	balance := find(t, prog.ID, []byte(prog.Namespace))
	payer, payerKey := signer(t)
	return Scenario{
		Program: prog.ID,
		Name:    name,
		Accounts: map[account.Role]account.Ref{
			instruction.RoleBalance:       {Key: balance.Address, IsWritable: true},
			instruction.RolePayer:         payer,
			instruction.RoleSystemProgram: program(cfg.SystemProgram),
		},
		Keys: []ed25519.PrivateKey{payerKey},
	}
}

// Route pays amounts from the router's USDC balance to fresh USDC accounts.
// The sender holds exactly total.
func Route(t *testing.T, cfg config.Config, amounts []uint64, total uint64) Scenario {
	t.Helper()
	owner := find(t, cfg.PaymentRouter.ID, []byte(cfg.PaymentRouter.Namespace))
	recipients := make([]account.Ref, len(amounts))
	for i := range recipients {
		recipients[i] = TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.USDCMint, RandomKey(t), 0)
	}
	return Scenario{
		Program: cfg.PaymentRouter.ID,
		Name:    instruction.Route,
		Accounts: map[account.Role]account.Ref{
			instruction.RoleSender:       TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.USDCMint, owner.Address, total),
			instruction.RoleSenderOwner:  {Key: owner.Address},
			instruction.RoleTokenProgram: program(cfg.TokenProgram),
		},
		Remaining: recipients,
		Args:      instruction.RouteArgs{Bump: owner.Bump, Amounts: amounts, Total: total},
	}
}

// vaultSigner searches for the first nonce that yields a valid vault signer.
func vaultSigner(t *testing.T, market, program solana.PublicKey) (solana.PublicKey, uint64) {
	t.Helper()
	for nonce := uint64(0); nonce < 256; nonce++ {
		addr, err := solana.CreateProgramAddress([][]byte{market.Bytes(), binary.LittleEndian.AppendUint64(nil, nonce)}, program)
		if err == nil {
			return addr, nonce
		}
	}
	t.Fatal("no vault signer nonce")
	return solana.PublicKey{}, 0
}

// Swap sells amountIn USDC from the staking bridge balance for AUDIO.
func Swap(t *testing.T, cfg config.Config, amountIn, minimumOut uint64) Scenario {
	t.Helper()
	owner := find(t, cfg.StakingBridge.ID, []byte(cfg.StakingBridge.Namespace))
	ammAuthority := find(t, cfg.AMMProgram, []byte("amm authority"))
	market := RandomKey(t)
	signerKey, nonce := vaultSigner(t, market, cfg.OrderBookProgram)

	return Scenario{
		Program: cfg.StakingBridge.ID,
		Name:    instruction.RaydiumSwap,
		Accounts: map[account.Role]account.Ref{
			instruction.RoleAMMProgram:           program(cfg.AMMProgram),
			instruction.RoleAMM:                  plain(RandomKey(t), cfg.AMMProgram, true),
			instruction.RoleAMMAuthority:         {Key: ammAuthority.Address},
			instruction.RoleAMMOpenOrders:        plain(RandomKey(t), cfg.OrderBookProgram, true),
			instruction.RoleAMMTargetOrders:      plain(RandomKey(t), cfg.AMMProgram, true),
			instruction.RolePoolCoinTokenAccount: TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.AudioMint, ammAuthority.Address, PoolCoinReserve),
			instruction.RolePoolPCTokenAccount:   TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.USDCMint, ammAuthority.Address, PoolPCReserve),
			instruction.RoleSerumProgram:         program(cfg.OrderBookProgram),
			instruction.RoleSerumMarket:          plain(market, cfg.OrderBookProgram, true),
			instruction.RoleSerumBids:            plain(RandomKey(t), cfg.OrderBookProgram, true),
			instruction.RoleSerumAsks:            plain(RandomKey(t), cfg.OrderBookProgram, true),
			instruction.RoleSerumEventQueue:      plain(RandomKey(t), cfg.OrderBookProgram, true),
			instruction.RoleSerumCoinVault:       TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.AudioMint, signerKey, 0),
			instruction.RoleSerumPCVault:         TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.USDCMint, signerKey, 0),
			instruction.RoleSerumVaultSigner:     {Key: signerKey},
			instruction.RoleUserSource:           TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.USDCMint, owner.Address, amountIn),
			instruction.RoleUserDestination:      TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.AudioMint, owner.Address, 0),
			instruction.RoleUserSourceOwner:      {Key: owner.Address},
			instruction.RoleTokenProgram:         program(cfg.TokenProgram),
		},
		Args: instruction.SwapArgs{AmountIn: amountIn, MinimumAmountOut: minimumOut, VaultNonce: nonce, Bump: owner.Bump},
	}
}

// Bridge deposits amount AUDIO from the staking bridge balance to the
// configured relay target.
func Bridge(t *testing.T, cfg config.Config, amount, fee uint64) Scenario {
	t.Helper()
	tb, core := cfg.TokenBridge, cfg.CoreBridge
	owner := find(t, cfg.StakingBridge.ID, []byte(cfg.StakingBridge.Namespace))
	cfgPDA := find(t, tb, []byte("config"))
	wrapped := find(t, tb, config.WrappedMintSeeds(cfg.Bridge.OriginChain, cfg.Bridge.OriginToken)...)
	meta := find(t, tb, []byte("meta"), wrapped.Address.Bytes())
	authority := find(t, tb, []byte("authority_signer"))
	bridgeConfig := find(t, core, []byte("Bridge"))
	emitter := find(t, tb, []byte("emitter"))
	sequence := find(t, core, []byte("Sequence"), emitter.Address.Bytes())
	feeCollector := find(t, core, []byte("fee_collector"))
	payer, payerKey := signer(t)
	message, messageKey := signer(t)

	return Scenario{
		Program: cfg.StakingBridge.ID,
		Name:    instruction.PostWormholeMessage,
		Accounts: map[account.Role]account.Ref{
			instruction.RoleTokenBridgeProgram: program(tb),
			instruction.RoleCoreBridgeProgram:  program(core),
			instruction.RolePayer:              payer,
			instruction.RoleConfig:             plain(cfgPDA.Address, tb, false),
			instruction.RoleWrappedMint:        plain(wrapped.Address, cfg.TokenProgram, true),
			instruction.RoleWrappedMeta:        plain(meta.Address, tb, false),
			instruction.RoleAuthoritySigner:    {Key: authority.Address},
			instruction.RoleBridgeConfig:       plain(bridgeConfig.Address, core, true),
			instruction.RoleEmitter:            {Key: emitter.Address},
			instruction.RoleSequence:           plain(sequence.Address, core, true),
			instruction.RoleFeeCollector:       plain(feeCollector.Address, core, true),
			instruction.RoleMessage:            message,
			instruction.RoleFromOwner:          {Key: owner.Address, IsWritable: true},
			instruction.RoleFrom:               TokenAccount(RandomKey(t), cfg.TokenProgram, cfg.AudioMint, owner.Address, amount),
			instruction.RoleClock:              {Key: cfg.ClockSysvar},
			instruction.RoleRent:               {Key: cfg.RentSysvar},
			instruction.RoleTokenProgram:       program(cfg.TokenProgram),
			instruction.RoleSystemProgram:      program(cfg.SystemProgram),
		},
		Args: instruction.BridgeArgs{
			Nonce:               1,
			Amount:              amount,
			Fee:                 fee,
			TargetAddress:       cfg.Bridge.TargetAddress,
			TargetChain:         cfg.Bridge.TargetChain,
			ConfigBump:          cfgPDA.Bump,
			WrappedMintBump:     wrapped.Bump,
			WrappedMetaBump:     meta.Bump,
			AuthoritySignerBump: authority.Bump,
			BridgeConfigBump:    bridgeConfig.Bump,
			EmitterBump:         emitter.Bump,
			SequenceBump:        sequence.Bump,
			FeeCollectorBump:    feeCollector.Bump,
			BalanceBump:         owner.Bump,
		},
		Keys: []ed25519.PrivateKey{payerKey, messageKey},
	}
}
