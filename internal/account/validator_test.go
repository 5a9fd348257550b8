package account

import (
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/OpenAudio/solana-programs/internal/address"
)

func key(name string) solana.PublicKey {
	sum := sha256.Sum256([]byte(name))
	return solana.PublicKeyFromBytes(sum[:])
}

var (
	program      = key("program")
	tokenProgram = key("token-program")
	usdc         = key("usdc")
	audio        = key("audio")
)

type fixture struct {
	table    Table
	accounts map[Role]Ref
	inputs   Inputs
	balance  address.Derived
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	balance, err := address.Find([][]byte{[]byte("payment_router")}, program)
	require.NoError(t, err)

	table, err := NewTable("route",
		Rule{Role: "sender", Owner: Key(tokenProgram), Mint: Key(usdc), AuthorityOf: "sender_owner", Writable: true},
		Rule{Role: "sender_owner", Derivation: &Derivation{Seeds: []Seed{Literal("payment_router")}, Program: program}},
		Rule{Role: "token_program", Key: Key(tokenProgram)},
		Rule{Role: "payer", Signer: true},
	)
	require.NoError(t, err)

	return &fixture{
		table:   table,
		balance: balance,
		accounts: map[Role]Ref{
			"sender": {
				Key:        key("sender"),
				Owner:      tokenProgram,
				IsWritable: true,
				Token:      &TokenState{Mint: usdc, Authority: balance.Address, Amount: 100},
			},
			"sender_owner":  {Key: balance.Address, Owner: program},
			"token_program": {Key: tokenProgram, Executable: true},
			"payer":         {Key: key("payer"), IsSigner: true},
		},
		inputs: Inputs{Bumps: map[Role]uint8{"sender_owner": balance.Bump}},
	}
}

func TestValidate_Success(t *testing.T) {
	f := newFixture(t)

	ctx, err := Validate(f.table, f.accounts, f.inputs)
	require.NoError(t, err)
	require.Equal(t, "route", ctx.Table())
	require.Equal(t, key("sender"), ctx.Key("sender"))

	d, ok := ctx.Derived("sender_owner")
	require.True(t, ok)
	require.Equal(t, f.balance.Address, d.Address)
	require.Equal(t, f.balance.Bump, d.Bump)

	// The context is a copy; changing the caller's map does not affect it.
	f.accounts["sender"].Token.Amount = 0
	require.Equal(t, uint64(100), ctx.Account("sender").Token.Amount)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture)
		role    Role
		wantErr error
	}{
		{
			name:    "missing account",
			mutate:  func(f *fixture) { delete(f.accounts, "token_program") },
			role:    "token_program",
			wantErr: ErrMissingAccount,
		},
		{
			name: "unexpected program id",
			mutate: func(f *fixture) {
				f.accounts["token_program"] = Ref{Key: key("fake-token-program"), Executable: true}
			},
			role:    "token_program",
			wantErr: ErrAccountMismatch,
		},
		{
			name: "wrong owner",
			mutate: func(f *fixture) {
				ref := f.accounts["sender"]
				ref.Owner = key("someone-else")
				f.accounts["sender"] = ref
			},
			role:    "sender",
			wantErr: ErrWrongOwner,
		},
		{
			name:    "mint mismatch",
			mutate:  func(f *fixture) { f.accounts["sender"].Token.Mint = audio },
			role:    "sender",
			wantErr: ErrMintMismatch,
		},
		{
			name: "not a token account",
			mutate: func(f *fixture) {
				ref := f.accounts["sender"]
				ref.Token = nil
				f.accounts["sender"] = ref
			},
			role:    "sender",
			wantErr: ErrMintMismatch,
		},
		{
			name:    "wrong bump",
			mutate:  func(f *fixture) { f.inputs.Bumps["sender_owner"] = f.balance.Bump - 1 },
			role:    "sender_owner",
			wantErr: address.ErrAddressMismatch,
		},
		{
			name:    "no bump",
			mutate:  func(f *fixture) { delete(f.inputs.Bumps, "sender_owner") },
			role:    "sender_owner",
			wantErr: address.ErrAddressMismatch,
		},
		{
			name: "impostor derived account",
			mutate: func(f *fixture) {
				f.accounts["sender_owner"] = Ref{Key: key("impostor"), Owner: program}
			},
			role:    "sender_owner",
			wantErr: address.ErrAddressMismatch,
		},
		{
			name:    "authority is not the derived address",
			mutate:  func(f *fixture) { f.accounts["sender"].Token.Authority = key("attacker") },
			role:    "sender",
			wantErr: ErrUnauthorizedAuthority,
		},
		{
			name: "missing signature",
			mutate: func(f *fixture) {
				ref := f.accounts["payer"]
				ref.IsSigner = false
				f.accounts["payer"] = ref
			},
			role:    "payer",
			wantErr: ErrMissingSignature,
		},
		{
			name: "not writable",
			mutate: func(f *fixture) {
				ref := f.accounts["sender"]
				ref.IsWritable = false
				f.accounts["sender"] = ref
			},
			role:    "sender",
			wantErr: ErrNotWritable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.mutate(f)

			ctx, err := Validate(f.table, f.accounts, f.inputs)
			require.Nil(t, ctx)
			require.ErrorIs(t, err, tc.wantErr)

			var accErr *Error
			require.ErrorAs(t, err, &accErr)
			require.Equal(t, tc.role, accErr.Role)
		})
	}
}

func TestValidate_FirstViolationWins(t *testing.T) {
	f := newFixture(t)
	// Break every phase at once; the owner check runs first.
	sender := f.accounts["sender"]
	sender.Owner = key("someone-else")
	sender.Token.Mint = audio
	sender.Token.Authority = key("attacker")
	sender.IsWritable = false
	f.accounts["sender"] = sender
	payer := f.accounts["payer"]
	payer.IsSigner = false
	f.accounts["payer"] = payer

	_, err := Validate(f.table, f.accounts, f.inputs)
	require.ErrorIs(t, err, ErrWrongOwner)

	sender.Owner = tokenProgram
	f.accounts["sender"] = sender
	_, err = Validate(f.table, f.accounts, f.inputs)
	require.ErrorIs(t, err, ErrMintMismatch)

	sender.Token.Mint = usdc
	_, err = Validate(f.table, f.accounts, f.inputs)
	require.ErrorIs(t, err, ErrUnauthorizedAuthority)

	sender.Token.Authority = f.balance.Address
	_, err = Validate(f.table, f.accounts, f.inputs)
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestValidate_SignerDoesNotOverrideAuthority(t *testing.T) {
	f := newFixture(t)
	// The attacker signs the call and owns the token account's authority.
	attacker := key("attacker")
	f.accounts["sender"].Token.Authority = attacker
	f.accounts["payer"] = Ref{Key: attacker, IsSigner: true}

	_, err := Validate(f.table, f.accounts, f.inputs)
	require.ErrorIs(t, err, ErrUnauthorizedAuthority)
}

func TestValidate_SeedReferences(t *testing.T) {
	bridge := key("core-bridge")
	emitter := key("emitter")
	sequence, err := address.Find([][]byte{[]byte("Sequence"), emitter.Bytes()}, bridge)
	require.NoError(t, err)
	canonical, err := address.Find([][]byte{[]byte("amm authority")}, bridge)
	require.NoError(t, err)

	table, err := NewTable("seeds",
		Rule{Role: "emitter"},
		Rule{Role: "sequence", Derivation: &Derivation{Seeds: []Seed{Literal("Sequence"), KeyOf("emitter")}, Program: bridge}},
		Rule{Role: "authority", Derivation: &Derivation{Seeds: []Seed{Literal("amm authority")}, Program: bridge, Bump: BumpCanonical}},
		Rule{Role: "nonce_signer", Derivation: &Derivation{Seeds: []Seed{Param("nonce")}, Program: bridge, Bump: BumpNone}},
	)
	require.NoError(t, err)

	// Find a nonce whose seed list is a valid program address on its own.
	var (
		nonceSeed []byte
		signer    solana.PublicKey
	)
	for n := 0; n < 256; n++ {
		candidate := []byte{byte(n)}
		addr, err := solana.CreateProgramAddress([][]byte{candidate}, bridge)
		if err == nil {
			nonceSeed, signer = candidate, addr
			break
		}
	}
	require.NotNil(t, nonceSeed)

	accounts := map[Role]Ref{
		"emitter":      {Key: emitter},
		"sequence":     {Key: sequence.Address},
		"authority":    {Key: canonical.Address},
		"nonce_signer": {Key: signer},
	}
	in := Inputs{
		Bumps: map[Role]uint8{"sequence": sequence.Bump},
		Seeds: map[string][]byte{"nonce": nonceSeed},
	}

	_, err = Validate(table, accounts, in)
	require.NoError(t, err)

	accounts["emitter"] = Ref{Key: key("other-emitter")}
	_, err = Validate(table, accounts, in)
	require.ErrorIs(t, err, address.ErrAddressMismatch)
}

func TestNewTable(t *testing.T) {
	_, err := NewTable("dup", Rule{Role: "a"}, Rule{Role: "a"})
	require.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewTable("authority", Rule{Role: "a", AuthorityOf: "b"}, Rule{Role: "b"})
	require.ErrorIs(t, err, ErrInvalidTable)

	_, err = NewTable("seed", Rule{Role: "a", Derivation: &Derivation{Seeds: []Seed{KeyOf("missing")}}})
	require.ErrorIs(t, err, ErrInvalidTable)

	table, err := NewTable("ok", Rule{Role: "a", Signer: true})
	require.NoError(t, err)
	r, ok := table.Rule("a")
	require.True(t, ok)
	require.True(t, r.Signer)
	_, ok = table.Rule("b")
	require.False(t, ok)
}
