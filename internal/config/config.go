// Package config holds the identities the programs trust: their own program
// ids and namespace tags, the collaborator programs they call, the mints they
// handle and the bridge route. Nothing here is hard-coded into validation;
// the processor receives a Config at construction time.
package config

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/gagliardetto/solana-go"
)

const EnvPrefix = "ROUTER_"

// MaxSeedLength is the longest seed the ledger accepts in a derivation.
const MaxSeedLength = 32

var ErrInvalidConfig = errors.New("invalid config")

// Program identifies one of our own programs and the namespace tag of its
// program-owned balance.
type Program struct {
	ID        solana.PublicKey
	Namespace string
}

// BridgeRoute pins where bridge deposits may go and which wrapped token they
// move.
type BridgeRoute struct {
	OriginChain   uint16
	OriginToken   [32]byte
	TargetChain   uint16
	TargetAddress [32]byte
}

type Config struct {
	PaymentRouter Program
	StakingBridge Program

	TokenProgram     solana.PublicKey
	SystemProgram    solana.PublicKey
	AMMProgram       solana.PublicKey
	OrderBookProgram solana.PublicKey
	TokenBridge      solana.PublicKey
	CoreBridge       solana.PublicKey
	ClockSysvar      solana.PublicKey
	RentSysvar       solana.PublicKey

	// USDCMint is what the swap sells; AudioMint is what it buys and what the
	// bridge carries back to the origin chain.
	USDCMint  solana.PublicKey
	AudioMint solana.PublicKey

	Bridge BridgeRoute
}

type rawEnv struct {
	PaymentRouterID        solana.PublicKey `env:"PAYMENT_ROUTER_ID" envDefault:"6pca6uGGV5GYKY8W9aGfJbWPx4pe5mW8wLaP9c3LUNpp"`
	PaymentRouterNamespace string           `env:"PAYMENT_ROUTER_NAMESPACE" envDefault:"payment_router"`
	StakingBridgeID        solana.PublicKey `env:"STAKING_BRIDGE_ID" envDefault:"HEDM7Zg7wNVSCWpV4TF7zp6rgj44C43CXnLtpY68V7bV"`
	StakingBridgeNamespace string           `env:"STAKING_BRIDGE_NAMESPACE" envDefault:"staking_bridge"`

	TokenProgram     solana.PublicKey `env:"TOKEN_PROGRAM" envDefault:"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"`
	SystemProgram    solana.PublicKey `env:"SYSTEM_PROGRAM" envDefault:"11111111111111111111111111111111"`
	AMMProgram       solana.PublicKey `env:"AMM_PROGRAM" envDefault:"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"`
	OrderBookProgram solana.PublicKey `env:"ORDER_BOOK_PROGRAM" envDefault:"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"`
	TokenBridge      solana.PublicKey `env:"TOKEN_BRIDGE" envDefault:"wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb"`
	CoreBridge       solana.PublicKey `env:"CORE_BRIDGE" envDefault:"worm2ZoG2kUd4vFXhvjh93UUH596ayRfgQ2MgjNMTth"`
	ClockSysvar      solana.PublicKey `env:"CLOCK_SYSVAR" envDefault:"SysvarC1ock11111111111111111111111111111111"`
	RentSysvar       solana.PublicKey `env:"RENT_SYSVAR" envDefault:"SysvarRent111111111111111111111111111111111"`

	USDCMint  solana.PublicKey `env:"USDC_MINT" envDefault:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`
	AudioMint solana.PublicKey `env:"AUDIO_MINT" envDefault:"9LzCMqDgTKYz9Drzqnpgee3SGa89up3a247ypMj2xrqM"`

	BridgeOriginChain   uint16 `env:"BRIDGE_ORIGIN_CHAIN" envDefault:"2"`
	BridgeOriginToken   string `env:"BRIDGE_ORIGIN_TOKEN" envDefault:"0x18aAA7115705e8be94bfFEBDE57Af9BFc265B998"`
	BridgeTargetChain   uint16 `env:"BRIDGE_TARGET_CHAIN" envDefault:"2"`
	BridgeTargetAddress string `env:"BRIDGE_TARGET_ADDRESS"`
}

var funcMap = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(solana.PublicKey{}): func(v string) (interface{}, error) {
		return solana.PublicKeyFromBase58(v)
	},
}

// Load reads ROUTER_* variables from the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, FuncMap: funcMap})
}

// LoadFrom reads ROUTER_* variables from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, FuncMap: funcMap, Environment: environ})
}

// Default returns the mainnet identities with no bridge target configured.
func Default() Config {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		// the defaults are compile-time constants
		panic(err)
	}
	return cfg
}

func parse(opts env.Options) (Config, error) {
	var raw rawEnv
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	originToken, err := ParseAddress32(raw.BridgeOriginToken)
	if err != nil {
		return Config{}, fmt.Errorf("%w: bridge origin token: %v", ErrInvalidConfig, err)
	}
	var target [32]byte
	if raw.BridgeTargetAddress != "" {
		target, err = ParseAddress32(raw.BridgeTargetAddress)
		if err != nil {
			return Config{}, fmt.Errorf("%w: bridge target address: %v", ErrInvalidConfig, err)
		}
	}

	return Config{
		PaymentRouter:    Program{ID: raw.PaymentRouterID, Namespace: raw.PaymentRouterNamespace},
		StakingBridge:    Program{ID: raw.StakingBridgeID, Namespace: raw.StakingBridgeNamespace},
		TokenProgram:     raw.TokenProgram,
		SystemProgram:    raw.SystemProgram,
		AMMProgram:       raw.AMMProgram,
		OrderBookProgram: raw.OrderBookProgram,
		TokenBridge:      raw.TokenBridge,
		CoreBridge:       raw.CoreBridge,
		ClockSysvar:      raw.ClockSysvar,
		RentSysvar:       raw.RentSysvar,
		USDCMint:         raw.USDCMint,
		AudioMint:        raw.AudioMint,
		Bridge: BridgeRoute{
			OriginChain:   raw.BridgeOriginChain,
			OriginToken:   originToken,
			TargetChain:   raw.BridgeTargetChain,
			TargetAddress: target,
		},
	}, nil
}

// Validate reports the first setting the programs cannot run with.
func (c Config) Validate() error {
	for _, p := range []Program{c.PaymentRouter, c.StakingBridge} {
		if p.ID.IsZero() {
			return fmt.Errorf("%w: program id not set", ErrInvalidConfig)
		}
		if p.Namespace == "" || len(p.Namespace) > MaxSeedLength {
			return fmt.Errorf("%w: namespace %q must be 1-%d bytes", ErrInvalidConfig, p.Namespace, MaxSeedLength)
		}
	}
	if c.PaymentRouter.ID.Equals(c.StakingBridge.ID) {
		return fmt.Errorf("%w: payment router and staking bridge share a program id", ErrInvalidConfig)
	}
	if c.USDCMint.Equals(c.AudioMint) {
		return fmt.Errorf("%w: swap mints must differ", ErrInvalidConfig)
	}
	if c.Bridge.TargetAddress == ([32]byte{}) {
		return fmt.Errorf("%w: bridge target address not set", ErrInvalidConfig)
	}
	wrapped, err := c.WrappedMint()
	if err != nil {
		return fmt.Errorf("%w: wrapped mint: %v", ErrInvalidConfig, err)
	}
	if !wrapped.Equals(c.AudioMint) {
		return fmt.Errorf("%w: audio mint %s is not the token bridge wrapped mint %s", ErrInvalidConfig, c.AudioMint, wrapped)
	}
	return nil
}

// WrappedMintSeeds returns the token bridge seeds of the wrapped mint for a
// token native to another chain.
func WrappedMintSeeds(originChain uint16, originToken [32]byte) [][]byte {
	return [][]byte{[]byte("wrapped"), binary.BigEndian.AppendUint16(nil, originChain), originToken[:]}
}

// WrappedMint is the mint the token bridge issues for the bridged origin token.
func (c Config) WrappedMint() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(WrappedMintSeeds(c.Bridge.OriginChain, c.Bridge.OriginToken), c.TokenBridge)
	return addr, err
}

// ParseAddress32 decodes a hex address and left-pads it to 32 bytes, the
// width the bridge uses for addresses on every chain.
func ParseAddress32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return out, err
	}
	if len(b) > len(out) {
		return out, fmt.Errorf("address is %d bytes, want at most %d", len(b), len(out))
	}
	copy(out[len(out)-len(b):], b)
	return out, nil
}
