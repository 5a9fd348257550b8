package instruction

import "github.com/OpenAudio/solana-programs/internal/account"

// Roles shared by several operations.
const (
	RoleBalance       account.Role = "balance"
	RolePayer         account.Role = "payer"
	RoleSystemProgram account.Role = "system_program"
	RoleTokenProgram  account.Role = "token_program"
)

// Route roles. Recipients follow as remaining accounts.
const (
	RoleSender      account.Role = "sender"
	RoleSenderOwner account.Role = "sender_owner"
)

// Swap roles.
const (
	RoleAMMProgram           account.Role = "amm_program"
	RoleAMM                  account.Role = "amm"
	RoleAMMAuthority         account.Role = "amm_authority"
	RoleAMMOpenOrders        account.Role = "amm_open_orders"
	RoleAMMTargetOrders      account.Role = "amm_target_orders"
	RolePoolCoinTokenAccount account.Role = "pool_coin_token_account"
	RolePoolPCTokenAccount   account.Role = "pool_pc_token_account"
	RoleSerumProgram         account.Role = "serum_program"
	RoleSerumMarket          account.Role = "serum_market"
	RoleSerumBids            account.Role = "serum_bids"
	RoleSerumAsks            account.Role = "serum_asks"
	RoleSerumEventQueue      account.Role = "serum_event_queue"
	RoleSerumCoinVault       account.Role = "serum_coin_vault_account"
	RoleSerumPCVault         account.Role = "serum_pc_vault_account"
	RoleSerumVaultSigner     account.Role = "serum_vault_signer"
	RoleUserSource           account.Role = "user_source_token_account"
	RoleUserDestination      account.Role = "user_destination_token_account"
	RoleUserSourceOwner      account.Role = "user_source_owner"
)

// Bridge roles.
const (
	RoleTokenBridgeProgram account.Role = "token_bridge_program"
	RoleCoreBridgeProgram  account.Role = "core_bridge_program"
	RoleConfig             account.Role = "config"
	RoleWrappedMint        account.Role = "wrapped_mint"
	RoleWrappedMeta        account.Role = "wrapped_meta"
	RoleAuthoritySigner    account.Role = "authority_signer"
	RoleBridgeConfig       account.Role = "bridge_config"
	RoleEmitter            account.Role = "emitter"
	RoleSequence           account.Role = "sequence"
	RoleFeeCollector       account.Role = "fee_collector"
	RoleMessage            account.Role = "message"
	RoleFromOwner          account.Role = "from_owner"
	RoleFrom               account.Role = "from"
	RoleClock              account.Role = "clock"
	RoleRent               account.Role = "rent"
)

var initRoles = []account.Role{RoleBalance, RolePayer, RoleSystemProgram}

var routeRoles = []account.Role{RoleSender, RoleSenderOwner, RoleTokenProgram}

var swapRoles = []account.Role{
	RoleAMMProgram,
	RoleAMM,
	RoleAMMAuthority,
	RoleAMMOpenOrders,
	RoleAMMTargetOrders,
	RolePoolCoinTokenAccount,
	RolePoolPCTokenAccount,
	RoleSerumProgram,
	RoleSerumMarket,
	RoleSerumBids,
	RoleSerumAsks,
	RoleSerumEventQueue,
	RoleSerumCoinVault,
	RoleSerumPCVault,
	RoleSerumVaultSigner,
	RoleUserSource,
	RoleUserDestination,
	RoleUserSourceOwner,
	RoleTokenProgram,
}

var bridgeRoles = []account.Role{
	RoleTokenBridgeProgram,
	RoleCoreBridgeProgram,
	RolePayer,
	RoleConfig,
	RoleWrappedMint,
	RoleWrappedMeta,
	RoleAuthoritySigner,
	RoleBridgeConfig,
	RoleEmitter,
	RoleSequence,
	RoleFeeCollector,
	RoleMessage,
	RoleFromOwner,
	RoleFrom,
	RoleClock,
	RoleRent,
	RoleTokenProgram,
	RoleSystemProgram,
}
