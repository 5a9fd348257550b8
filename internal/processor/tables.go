package processor

import (
	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/instruction"
)

// VaultNonceSeed is the seed name under which the swap's vault nonce is
// supplied to the order-book vault signer derivation.
const VaultNonceSeed = "vault_nonce"

func initTable(name string, prog config.Program, cfg config.Config) (account.Table, error) {
	return account.NewTable(name,
		account.Rule{
			Role: instruction.RoleBalance,
			Derivation: &account.Derivation{
				Seeds:   []account.Seed{account.Literal(prog.Namespace)},
				Program: prog.ID,
				Bump:    account.BumpCanonical,
			},
			Writable: true,
		},
		account.Rule{Role: instruction.RolePayer, Signer: true, Writable: true},
		account.Rule{Role: instruction.RoleSystemProgram, Key: account.Key(cfg.SystemProgram)},
	)
}

// balanceAuthority is the derived authority over a program-owned balance,
// verified with the bump the caller supplies.
func balanceAuthority(role account.Role, prog config.Program, writable bool) account.Rule {
	return account.Rule{
		Role: role,
		Derivation: &account.Derivation{
			Seeds:   []account.Seed{account.Literal(prog.Namespace)},
			Program: prog.ID,
			Bump:    account.BumpSupplied,
		},
		Writable: writable,
	}
}

func routeTable(cfg config.Config) (account.Table, error) {
	return account.NewTable(instruction.Route,
		account.Rule{
			Role:        instruction.RoleSender,
			Owner:       account.Key(cfg.TokenProgram),
			AuthorityOf: instruction.RoleSenderOwner,
			Writable:    true,
		},
		balanceAuthority(instruction.RoleSenderOwner, cfg.PaymentRouter, false),
		account.Rule{Role: instruction.RoleTokenProgram, Key: account.Key(cfg.TokenProgram)},
	)
}

func swapTable(cfg config.Config) (account.Table, error) {
	owned := func(role account.Role, owner solana.PublicKey, writable bool) account.Rule {
		return account.Rule{Role: role, Owner: account.Key(owner), Writable: writable}
	}
	// Pool reserves and order-book vaults hold the pair: coin is AUDIO, pc is USDC.
	reserve := func(role account.Role, mint solana.PublicKey) account.Rule {
		return account.Rule{Role: role, Owner: account.Key(cfg.TokenProgram), Mint: account.Key(mint), Writable: true}
	}
	return account.NewTable(instruction.RaydiumSwap,
		account.Rule{Role: instruction.RoleAMMProgram, Key: account.Key(cfg.AMMProgram)},
		owned(instruction.RoleAMM, cfg.AMMProgram, true),
		account.Rule{
			Role: instruction.RoleAMMAuthority,
			Derivation: &account.Derivation{
				Seeds:   []account.Seed{account.Literal("amm authority")},
				Program: cfg.AMMProgram,
				Bump:    account.BumpCanonical,
			},
		},
		account.Rule{Role: instruction.RoleAMMOpenOrders, Writable: true},
		account.Rule{Role: instruction.RoleAMMTargetOrders, Writable: true},
		reserve(instruction.RolePoolCoinTokenAccount, cfg.AudioMint),
		reserve(instruction.RolePoolPCTokenAccount, cfg.USDCMint),
		account.Rule{Role: instruction.RoleSerumProgram, Key: account.Key(cfg.OrderBookProgram)},
		owned(instruction.RoleSerumMarket, cfg.OrderBookProgram, true),
		account.Rule{Role: instruction.RoleSerumBids, Writable: true},
		account.Rule{Role: instruction.RoleSerumAsks, Writable: true},
		account.Rule{Role: instruction.RoleSerumEventQueue, Writable: true},
		reserve(instruction.RoleSerumCoinVault, cfg.AudioMint),
		reserve(instruction.RoleSerumPCVault, cfg.USDCMint),
		account.Rule{
			Role: instruction.RoleSerumVaultSigner,
			Derivation: &account.Derivation{
				Seeds:   []account.Seed{account.KeyOf(instruction.RoleSerumMarket), account.Param(VaultNonceSeed)},
				Program: cfg.OrderBookProgram,
				Bump:    account.BumpNone,
			},
		},
		account.Rule{
			Role:        instruction.RoleUserSource,
			Owner:       account.Key(cfg.TokenProgram),
			Mint:        account.Key(cfg.USDCMint),
			AuthorityOf: instruction.RoleUserSourceOwner,
			Writable:    true,
		},
		account.Rule{
			Role:        instruction.RoleUserDestination,
			Owner:       account.Key(cfg.TokenProgram),
			Mint:        account.Key(cfg.AudioMint),
			AuthorityOf: instruction.RoleUserSourceOwner,
			Writable:    true,
		},
		balanceAuthority(instruction.RoleUserSourceOwner, cfg.StakingBridge, false),
		account.Rule{Role: instruction.RoleTokenProgram, Key: account.Key(cfg.TokenProgram)},
	)
}

func bridgeTable(cfg config.Config) (account.Table, error) {
	pda := func(role account.Role, program solana.PublicKey, writable bool, seeds ...account.Seed) account.Rule {
		return account.Rule{
			Role:       role,
			Derivation: &account.Derivation{Seeds: seeds, Program: program, Bump: account.BumpSupplied},
			Writable:   writable,
		}
	}
	wrapped := config.WrappedMintSeeds(cfg.Bridge.OriginChain, cfg.Bridge.OriginToken)

	return account.NewTable(instruction.PostWormholeMessage,
		account.Rule{Role: instruction.RoleTokenBridgeProgram, Key: account.Key(cfg.TokenBridge)},
		account.Rule{Role: instruction.RoleCoreBridgeProgram, Key: account.Key(cfg.CoreBridge)},
		account.Rule{Role: instruction.RolePayer, Signer: true, Writable: true},
		pda(instruction.RoleConfig, cfg.TokenBridge, false, account.Literal("config")),
		pda(instruction.RoleWrappedMint, cfg.TokenBridge, true,
			account.Raw(wrapped[0]), account.Raw(wrapped[1]), account.Raw(wrapped[2])),
		pda(instruction.RoleWrappedMeta, cfg.TokenBridge, false,
			account.Literal("meta"), account.KeyOf(instruction.RoleWrappedMint)),
		pda(instruction.RoleAuthoritySigner, cfg.TokenBridge, false, account.Literal("authority_signer")),
		pda(instruction.RoleBridgeConfig, cfg.CoreBridge, true, account.Literal("Bridge")),
		pda(instruction.RoleEmitter, cfg.TokenBridge, false, account.Literal("emitter")),
		pda(instruction.RoleSequence, cfg.CoreBridge, true,
			account.Literal("Sequence"), account.KeyOf(instruction.RoleEmitter)),
		pda(instruction.RoleFeeCollector, cfg.CoreBridge, true, account.Literal("fee_collector")),
		account.Rule{Role: instruction.RoleMessage, Signer: true, Writable: true},
		balanceAuthority(instruction.RoleFromOwner, cfg.StakingBridge, true),
		account.Rule{
			Role:        instruction.RoleFrom,
			Owner:       account.Key(cfg.TokenProgram),
			Mint:        account.Key(cfg.AudioMint),
			AuthorityOf: instruction.RoleFromOwner,
			Writable:    true,
		},
		account.Rule{Role: instruction.RoleClock, Key: account.Key(cfg.ClockSysvar)},
		account.Rule{Role: instruction.RoleRent, Key: account.Key(cfg.RentSysvar)},
		account.Rule{Role: instruction.RoleTokenProgram, Key: account.Key(cfg.TokenProgram)},
		account.Rule{Role: instruction.RoleSystemProgram, Key: account.Key(cfg.SystemProgram)},
	)
}
