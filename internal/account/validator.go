package account

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/address"
)

// Inputs carries the caller-supplied values a table needs to re-derive
// addresses: one bump per derived role and any named seed material.
type Inputs struct {
	Bumps map[Role]uint8
	Seeds map[string][]byte
}

// Context binds every role of a table to an account that passed all checks.
type Context struct {
	table    string
	accounts map[Role]Ref
	derived  map[Role]address.Derived
}

func (c *Context) Table() string { return c.table }

// Account returns the verified account playing role.
func (c *Context) Account(role Role) Ref {
	return c.accounts[role].clone()
}

// Key returns the identity of the account playing role.
func (c *Context) Key(role Role) solana.PublicKey {
	return c.accounts[role].Key
}

// Derived returns the derivation verified for role.
func (c *Context) Derived(role Role) (address.Derived, bool) {
	d, ok := c.derived[role]
	return d, ok
}

// Validate checks accounts against every rule of table. Checks run in a fixed
// order across all roles: presence, identity and owner, mint, derived
// identities and authorities, signers, then writability. The first
// violation is returned and no Context is produced.
func Validate(table Table, accounts map[Role]Ref, in Inputs) (*Context, error) {
	for _, r := range table.Rules {
		if _, ok := accounts[r.Role]; !ok {
			return nil, fail(r.Role, ErrMissingAccount)
		}
	}

	for _, r := range table.Rules {
		acc := accounts[r.Role]
		if r.Key != nil && !acc.Key.Equals(*r.Key) {
			return nil, fail(r.Role, fmt.Errorf("%w: expected %s, got %s", ErrAccountMismatch, r.Key, acc.Key))
		}
		if r.Owner != nil && !acc.Owner.Equals(*r.Owner) {
			return nil, fail(r.Role, fmt.Errorf("%w: expected %s, got %s", ErrWrongOwner, r.Owner, acc.Owner))
		}
	}

	for _, r := range table.Rules {
		if r.Mint == nil {
			continue
		}
		acc := accounts[r.Role]
		if acc.Token == nil {
			return nil, fail(r.Role, fmt.Errorf("%w: not a token account", ErrMintMismatch))
		}
		if !acc.Token.Mint.Equals(*r.Mint) {
			return nil, fail(r.Role, fmt.Errorf("%w: expected %s, got %s", ErrMintMismatch, r.Mint, acc.Token.Mint))
		}
	}

	derived := make(map[Role]address.Derived)
	for _, r := range table.Rules {
		if r.Derivation == nil {
			continue
		}
		d, err := verifyDerivation(r, accounts, in)
		if err != nil {
			return nil, fail(r.Role, err)
		}
		derived[r.Role] = d
	}
	for _, r := range table.Rules {
		if r.AuthorityOf == "" {
			continue
		}
		acc := accounts[r.Role]
		authority, ok := derived[r.AuthorityOf]
		if !ok {
			return nil, fail(r.Role, fmt.Errorf("%w: %s is not derived", ErrInvalidTable, r.AuthorityOf))
		}
		if acc.Token == nil {
			return nil, fail(r.Role, fmt.Errorf("%w: not a token account", ErrUnauthorizedAuthority))
		}
		if !acc.Token.Authority.Equals(authority.Address) {
			return nil, fail(r.Role, fmt.Errorf("%w: authority %s is not %s", ErrUnauthorizedAuthority, acc.Token.Authority, r.AuthorityOf))
		}
	}

	for _, r := range table.Rules {
		if r.Signer && !accounts[r.Role].IsSigner {
			return nil, fail(r.Role, ErrMissingSignature)
		}
	}
	for _, r := range table.Rules {
		if r.Writable && !accounts[r.Role].IsWritable {
			return nil, fail(r.Role, ErrNotWritable)
		}
	}

	bound := make(map[Role]Ref, len(table.Rules))
	for _, r := range table.Rules {
		bound[r.Role] = accounts[r.Role].clone()
	}
	return &Context{table: table.Name, accounts: bound, derived: derived}, nil
}

func verifyDerivation(r Rule, accounts map[Role]Ref, in Inputs) (address.Derived, error) {
	d := r.Derivation
	seeds := make([][]byte, 0, len(d.Seeds))
	for _, s := range d.Seeds {
		switch {
		case s.Role != "":
			ref, ok := accounts[s.Role]
			if !ok {
				return address.Derived{}, fmt.Errorf("%w: seed account %s", ErrMissingAccount, s.Role)
			}
			seeds = append(seeds, ref.Key.Bytes())
		case s.Param != "":
			v, ok := in.Seeds[s.Param]
			if !ok {
				return address.Derived{}, fmt.Errorf("%w: no seed value %q supplied", address.ErrAddressMismatch, s.Param)
			}
			seeds = append(seeds, v)
		default:
			seeds = append(seeds, s.Bytes)
		}
	}

	claimed := accounts[r.Role].Key
	switch d.Bump {
	case BumpSupplied:
		bump, ok := in.Bumps[r.Role]
		if !ok {
			return address.Derived{}, fmt.Errorf("%w: no bump supplied", address.ErrAddressMismatch)
		}
		return address.DeriveAndVerify(seeds, bump, claimed, d.Program)
	case BumpCanonical:
		found, err := address.Find(seeds, d.Program)
		if err != nil {
			return address.Derived{}, fmt.Errorf("%w: %v", address.ErrAddressMismatch, err)
		}
		return address.DeriveAndVerify(seeds, found.Bump, claimed, d.Program)
	case BumpNone:
		return address.Verify(seeds, claimed, d.Program)
	default:
		return address.Derived{}, fmt.Errorf("%w: unknown bump mode %d", ErrInvalidTable, d.Bump)
	}
}
