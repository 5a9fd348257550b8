package account

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BumpMode selects how the bump of a derived address is obtained.
type BumpMode uint8

const (
	// BumpSupplied takes the bump the caller supplied for the role.
	BumpSupplied BumpMode = iota
	// BumpCanonical searches for the canonical bump.
	BumpCanonical
	// BumpNone derives from the seeds alone; the last seed acts as the nonce.
	BumpNone
)

// Seed is one component of a derivation. Exactly one field is set.
type Seed struct {
	Bytes []byte // literal
	Role  Role   // key of another account in the call
	Param string // caller-supplied seed value
}

func Literal(s string) Seed  { return Seed{Bytes: []byte(s)} }
func KeyOf(role Role) Seed   { return Seed{Role: role} }
func Param(name string) Seed { return Seed{Param: name} }
func Raw(b []byte) Seed      { return Seed{Bytes: b} }

// Derivation describes how an account's identity is derived.
type Derivation struct {
	Seeds   []Seed
	Program solana.PublicKey
	Bump    BumpMode
}

// Rule lists the relationships one role must satisfy. Nil and zero fields are
// not checked.
type Rule struct {
	Role Role
	// Key pins the account to an exact identity (program ids, sysvars).
	Key *solana.PublicKey
	// Owner is the program that must own the account.
	Owner *solana.PublicKey
	// Mint is the mint a token account must hold.
	Mint *solana.PublicKey
	// Derivation, when set, must reproduce the account's identity.
	Derivation *Derivation
	// AuthorityOf names a derived role whose address must be the token authority.
	AuthorityOf Role
	Signer      bool
	Writable    bool
}

// Table is the full set of relationship rules for one operation kind.
type Table struct {
	Name  string
	Rules []Rule
}

// NewTable checks that roles are unique and that every authority reference
// and seed reference points at a role of the same table.
func NewTable(name string, rules ...Rule) (Table, error) {
	roles := make(map[Role]Rule, len(rules))
	for _, r := range rules {
		if r.Role == "" {
			return Table{}, fmt.Errorf("%w: %s: empty role", ErrInvalidTable, name)
		}
		if _, dup := roles[r.Role]; dup {
			return Table{}, fmt.Errorf("%w: %s: duplicate role %s", ErrInvalidTable, name, r.Role)
		}
		roles[r.Role] = r
	}
	for _, r := range rules {
		if r.AuthorityOf != "" {
			target, ok := roles[r.AuthorityOf]
			if !ok || target.Derivation == nil {
				return Table{}, fmt.Errorf("%w: %s: %s authority %s is not a derived role", ErrInvalidTable, name, r.Role, r.AuthorityOf)
			}
		}
		if r.Derivation == nil {
			continue
		}
		for _, s := range r.Derivation.Seeds {
			if s.Role == "" {
				continue
			}
			if _, ok := roles[s.Role]; !ok {
				return Table{}, fmt.Errorf("%w: %s: %s seed refers to unknown role %s", ErrInvalidTable, name, r.Role, s.Role)
			}
		}
	}
	return Table{Name: name, Rules: rules}, nil
}

// Rule returns the rule for role.
func (t Table) Rule(role Role) (Rule, bool) {
	for _, r := range t.Rules {
		if r.Role == role {
			return r, true
		}
	}
	return Rule{}, false
}

// Key is a convenience for taking the address of a key in a rule literal.
func Key(k solana.PublicKey) *solana.PublicKey {
	return &k
}
