package config

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "payment_router", cfg.PaymentRouter.Namespace)
	assert.Equal(t, "staking_bridge", cfg.StakingBridge.Namespace)
	assert.Equal(t, solana.TokenProgramID, cfg.TokenProgram)
	assert.Equal(t, solana.SystemProgramID, cfg.SystemProgram)
	assert.Equal(t, solana.SysVarClockPubkey, cfg.ClockSysvar)
	assert.Equal(t, solana.SysVarRentPubkey, cfg.RentSysvar)
	assert.Equal(t, uint16(2), cfg.Bridge.OriginChain)
	assert.Equal(t, byte(0x18), cfg.Bridge.OriginToken[12])
	assert.Equal(t, [12]byte{}, [12]byte(cfg.Bridge.OriginToken[:12]))

	// no relay target until one is configured
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLoadFrom(t *testing.T) {
	router := solana.NewWallet().PublicKey()
	cfg, err := LoadFrom(map[string]string{
		"ROUTER_PAYMENT_ROUTER_ID":        router.String(),
		"ROUTER_PAYMENT_ROUTER_NAMESPACE": "router_test",
		"ROUTER_BRIDGE_TARGET_CHAIN":      "4",
		"ROUTER_BRIDGE_TARGET_ADDRESS":    "0x00000000000000000000000000000000000000aa",
	})
	require.NoError(t, err)

	assert.Equal(t, router, cfg.PaymentRouter.ID)
	assert.Equal(t, "router_test", cfg.PaymentRouter.Namespace)
	assert.Equal(t, uint16(4), cfg.Bridge.TargetChain)
	assert.Equal(t, byte(0xaa), cfg.Bridge.TargetAddress[31])
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromErrors(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"bad public key", map[string]string{"ROUTER_TOKEN_PROGRAM": "not-base58-0OIl"}},
		{"bad chain id", map[string]string{"ROUTER_BRIDGE_TARGET_CHAIN": "70000"}},
		{"bad target hex", map[string]string{"ROUTER_BRIDGE_TARGET_ADDRESS": "0xzz"}},
		{"target too long", map[string]string{"ROUTER_BRIDGE_TARGET_ADDRESS": "0x" + strings.Repeat("11", 33)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFrom(tc.environ)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Bridge.TargetAddress[31] = 1
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty namespace", func(c *Config) { c.StakingBridge.Namespace = "" }},
		{"long namespace", func(c *Config) { c.PaymentRouter.Namespace = strings.Repeat("n", MaxSeedLength+1) }},
		{"zero program id", func(c *Config) { c.PaymentRouter.ID = solana.PublicKey{} }},
		{"shared program id", func(c *Config) { c.StakingBridge.ID = c.PaymentRouter.ID }},
		{"same swap mints", func(c *Config) { c.AudioMint = c.USDCMint }},
		{"no target", func(c *Config) { c.Bridge.TargetAddress = [32]byte{} }},
		{"audio mint not bridged", func(c *Config) { c.AudioMint = solana.NewWallet().PublicKey() }},
		{"origin token moved", func(c *Config) { c.Bridge.OriginToken[31] ^= 1 }},
		{"token bridge moved", func(c *Config) { c.TokenBridge = solana.NewWallet().PublicKey() }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestWrappedMint(t *testing.T) {
	cfg := Default()
	wrapped, err := cfg.WrappedMint()
	require.NoError(t, err)
	assert.Equal(t, cfg.AudioMint, wrapped)

	seeds := WrappedMintSeeds(cfg.Bridge.OriginChain, cfg.Bridge.OriginToken)
	require.Len(t, seeds, 3)
	assert.Equal(t, []byte{0, 2}, seeds[1])
}

func TestParseAddress32(t *testing.T) {
	addr, err := ParseAddress32("0x18aAA7115705e8be94bfFEBDE57Af9BFc265B998")
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000018aaa7115705e8be94bffebde57af9bfc265b998", hex.EncodeToString(addr[:]))

	full, err := ParseAddress32(strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), full[0])
}
