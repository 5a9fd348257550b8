// Package address derives and verifies program-controlled account identities.
//
// A derived address is computed from a list of seeds, an optional bump byte
// and the identity of the program that controls it. It has no private key;
// the controlling program "signs" for it by presenting the same seeds to the
// ledger, which re-derives the address.
package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var ErrAddressMismatch = errors.New("derived address mismatch")

// Derived is an identity that has been re-derived and checked.
type Derived struct {
	Address solana.PublicKey
	Seeds   [][]byte
	Bump    uint8
	Program solana.PublicKey
	// HasBump is false for addresses whose seed list is complete without a bump.
	HasBump bool
}

// SignerSeeds returns the seeds a program presents to authorize as this address.
func (d Derived) SignerSeeds() [][]byte {
	seeds := make([][]byte, 0, len(d.Seeds)+1)
	for _, s := range d.Seeds {
		seeds = append(seeds, bytes.Clone(s))
	}
	if d.HasBump {
		seeds = append(seeds, []byte{d.Bump})
	}
	return seeds
}

// Derive computes the address for seeds ‖ bump under program.
func Derive(seeds [][]byte, bump uint8, program solana.PublicKey) (solana.PublicKey, error) {
	withBump := make([][]byte, 0, len(seeds)+1)
	withBump = append(withBump, seeds...)
	withBump = append(withBump, []byte{bump})
	return solana.CreateProgramAddress(withBump, program)
}

// DeriveAndVerify re-derives the address for (seeds, bump, program) and checks
// it against the identity the caller claims. A bump that does not produce a
// valid program address is reported as a mismatch.
func DeriveAndVerify(seeds [][]byte, bump uint8, claimed, program solana.PublicKey) (Derived, error) {
	addr, err := Derive(seeds, bump, program)
	if err != nil {
		return Derived{}, fmt.Errorf("%w: bump %d: %v", ErrAddressMismatch, bump, err)
	}
	if !addr.Equals(claimed) {
		return Derived{}, fmt.Errorf("%w: expected %s, got %s", ErrAddressMismatch, addr, claimed)
	}
	return Derived{
		Address: addr,
		Seeds:   seeds,
		Bump:    bump,
		Program: program,
		HasBump: true,
	}, nil
}

// Verify checks claimed against an address whose seed list is already complete.
func Verify(seeds [][]byte, claimed, program solana.PublicKey) (Derived, error) {
	addr, err := solana.CreateProgramAddress(seeds, program)
	if err != nil {
		return Derived{}, fmt.Errorf("%w: %v", ErrAddressMismatch, err)
	}
	if !addr.Equals(claimed) {
		return Derived{}, fmt.Errorf("%w: expected %s, got %s", ErrAddressMismatch, addr, claimed)
	}
	return Derived{Address: addr, Seeds: seeds, Program: program}, nil
}

// Find returns the derived address with the canonical bump, the highest bump
// value that yields a valid program address.
func Find(seeds [][]byte, program solana.PublicKey) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return Derived{}, err
	}
	return Derived{
		Address: addr,
		Seeds:   seeds,
		Bump:    bump,
		Program: program,
		HasBump: true,
	}, nil
}

// Authenticate reports whether signerSeeds, presented by program, derive addr.
// Collaborators use it to accept a program's signature for one of its derived
// addresses.
func Authenticate(signerSeeds [][]byte, addr, program solana.PublicKey) bool {
	derived, err := solana.CreateProgramAddress(signerSeeds, program)
	if err != nil {
		return false
	}
	return derived.Equals(addr)
}
