package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/crypto"
	"github.com/OpenAudio/solana-programs/internal/instruction"
	"github.com/OpenAudio/solana-programs/internal/orchestrator"
	"github.com/OpenAudio/solana-programs/internal/testutils"
	"github.com/OpenAudio/solana-programs/pkg/db/pebble"
)

func newLedger(t *testing.T) (*Ledger, config.Config, *pebble.KVStore) {
	t.Helper()
	store, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := testutils.Config(t)
	l, err := New(store, cfg)
	require.NoError(t, err)
	return l, cfg, store
}

func envelope(t *testing.T, s testutils.Scenario) Envelope {
	t.Helper()
	call := s.Call(t)
	msg := Message{Program: call.Program, Data: call.Data}
	for _, ref := range call.Accounts {
		msg.Accounts = append(msg.Accounts, AccountMeta{Key: ref.Key, Writable: ref.IsWritable})
	}
	env, err := Sign(msg, s.Keys...)
	require.NoError(t, err)
	return env
}

func seed(t *testing.T, l *Ledger, s testutils.Scenario) {
	t.Helper()
	require.NoError(t, l.Seed(s.All()...))
}

func dump(t *testing.T, l *Ledger) string {
	t.Helper()
	snap, err := l.Snapshot()
	require.NoError(t, err)
	lines := make([]string, 0, len(snap))
	for key, a := range snap {
		lines = append(lines, fmt.Sprintf("%s owner=%s lamports=%d token=%v %+v data=%x\n", key, a.Owner, a.Lamports, a.IsToken, a.Token, a.Data))
	}
	sort.Strings(lines)
	return strings.Join(lines, "")
}

// requireUnchanged fails with a unified diff of the account state.
func requireUnchanged(t *testing.T, before, after string) {
	t.Helper()
	if before == after {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "Before",
		ToFile:   "After",
		Context:  1,
	})
	t.Fatalf("state changed:\n%s", diff)
}

func tokenAmount(t *testing.T, l *Ledger, key solana.PublicKey) uint64 {
	t.Helper()
	a, err := l.Account(key)
	require.NoError(t, err)
	require.True(t, a.IsToken)
	return a.Token.Amount
}

func TestRouteEndToEnd(t *testing.T) {
	l, cfg, _ := newLedger(t)
	s := testutils.Route(t, cfg, []uint64{10, 20, 70}, 100)
	seed(t, l, s)

	env := envelope(t, s)
	require.NoError(t, l.Submit(env))

	assert.Equal(t, uint64(0), tokenAmount(t, l, s.Accounts[instruction.RoleSender].Key))
	for i, want := range []uint64{10, 20, 70} {
		assert.Equal(t, want, tokenAmount(t, l, s.Remaining[i].Key))
	}

	events, err := l.Events()
	require.NoError(t, err)
	require.Len(t, events, 3)
	hash, err := env.Message.Hash()
	require.NoError(t, err)
	for i, want := range []uint64{10, 20, 70} {
		assert.Equal(t, EventTransfer, events[i].Kind)
		assert.Equal(t, s.Remaining[i].Key, events[i].Destination)
		assert.Equal(t, want, events[i].Amount)
		assert.Equal(t, hash, events[i].Call)
	}
}

func TestRouteAtomicity(t *testing.T) {
	l, cfg, _ := newLedger(t)
	s := testutils.Route(t, cfg, []uint64{30, 70}, 100)
	s.Remaining[1] = testutils.TokenAccount(testutils.RandomKey(t), cfg.TokenProgram, cfg.AudioMint, testutils.RandomKey(t), 0)
	seed(t, l, s)
	before := dump(t, l)

	err := l.Submit(envelope(t, s))
	require.ErrorIs(t, err, orchestrator.ErrCollaboratorFailed)
	assert.ErrorIs(t, err, ErrTokenMintMismatch)

	requireUnchanged(t, before, dump(t, l))
	events, err := l.Events()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestInitBalanceOnce(t *testing.T) {
	l, cfg, _ := newLedger(t)
	s := testutils.InitBalance(t, cfg, cfg.PaymentRouter)
	seed(t, l, s)

	require.NoError(t, l.Submit(envelope(t, s)))
	balance, err := l.Account(s.Accounts[instruction.RoleBalance].Key)
	require.NoError(t, err)
	assert.Equal(t, cfg.PaymentRouter.ID, balance.Owner)
	assert.Equal(t, uint64(orchestrator.BalanceSpace), balance.Space)
	assert.Equal(t, RentExemptMinimum(orchestrator.BalanceSpace), balance.Lamports)

	before := dump(t, l)
	err = l.Submit(envelope(t, s))
	require.ErrorIs(t, err, ErrAccountAlreadyInUse)
	var collab *orchestrator.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, orchestrator.SystemCollaborator, collab.Collaborator)
	requireUnchanged(t, before, dump(t, l))
}

func TestSwap(t *testing.T) {
	l, cfg, _ := newLedger(t)

	t.Run("fills at pool price", func(t *testing.T) {
		s := testutils.Swap(t, cfg, 10_000, 1)
		seed(t, l, s)
		want, ok := SwapOut(10_000, testutils.PoolPCReserve, testutils.PoolCoinReserve)
		require.True(t, ok)

		require.NoError(t, l.Submit(envelope(t, s)))
		assert.Equal(t, want, tokenAmount(t, l, s.Accounts[instruction.RoleUserDestination].Key))
		assert.Equal(t, uint64(0), tokenAmount(t, l, s.Accounts[instruction.RoleUserSource].Key))
		assert.Equal(t, testutils.PoolPCReserve+10_000, tokenAmount(t, l, s.Accounts[instruction.RolePoolPCTokenAccount].Key))
		assert.Equal(t, testutils.PoolCoinReserve-want, tokenAmount(t, l, s.Accounts[instruction.RolePoolCoinTokenAccount].Key))
	})

	t.Run("slippage leaves state untouched", func(t *testing.T) {
		s := testutils.Swap(t, cfg, 10_000, 10_000)
		seed(t, l, s)
		before := dump(t, l)

		err := l.Submit(envelope(t, s))
		assert.ErrorIs(t, err, ErrSlippage)
		requireUnchanged(t, before, dump(t, l))
	})

	t.Run("foreign authority rejected before the engine", func(t *testing.T) {
		s := testutils.Swap(t, cfg, 10_000, 1).Set(instruction.RoleUserSource, func(r *account.Ref) {
			r.Token.Authority = testutils.RandomKey(t)
		})
		seed(t, l, s)
		before := dump(t, l)

		err := l.Submit(envelope(t, s))
		assert.ErrorIs(t, err, account.ErrUnauthorizedAuthority)
		requireUnchanged(t, before, dump(t, l))
	})
}

func TestBridgeDeposit(t *testing.T) {
	l, cfg, _ := newLedger(t)
	s := testutils.Bridge(t, cfg, 1_000, 10)
	seed(t, l, s)
	from := s.Accounts[instruction.RoleFrom].Key

	require.NoError(t, l.Submit(envelope(t, s)))

	fromAcc, err := l.Account(from)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fromAcc.Token.Amount)
	assert.Equal(t, s.Accounts[instruction.RoleAuthoritySigner].Key, fromAcc.Token.Delegate)
	assert.Equal(t, uint64(0), fromAcc.Token.DelegatedAmount, "allowance must be consumed exactly")

	args := s.Args.(instruction.BridgeArgs)
	payload, err := bin.MarshalBorsh(args.Message())
	require.NoError(t, err)

	msgAcc, err := l.Account(s.Accounts[instruction.RoleMessage].Key)
	require.NoError(t, err)
	assert.Equal(t, cfg.CoreBridge, msgAcc.Owner)
	assert.Equal(t, payload, msgAcc.Data)

	events, err := l.Events()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventApprove, events[0].Kind)
	assert.Equal(t, EventBridgeMessage, events[1].Kind)
	assert.Equal(t, uint64(0), events[1].Sequence)
	assert.Equal(t, crypto.KeccakData(payload), events[1].Digest)

	t.Run("sequence advances", func(t *testing.T) {
		next := testutils.Bridge(t, cfg, 500, 0)
		seed(t, l, next)
		require.NoError(t, l.Submit(envelope(t, next)))

		events, err := l.Events()
		require.NoError(t, err)
		require.Len(t, events, 4)
		assert.Equal(t, uint64(1), events[3].Sequence)
	})

	t.Run("insufficient balance discards the approval", func(t *testing.T) {
		l, cfg, _ := newLedger(t)
		short := testutils.Bridge(t, cfg, 1_000, 0).Set(instruction.RoleFrom, func(r *account.Ref) {
			r.Token.Amount = 999
		})
		seed(t, l, short)
		from := short.Accounts[instruction.RoleFrom].Key
		require.Equal(t, uint64(999), tokenAmount(t, l, from))
		before := dump(t, l)

		err := l.Submit(envelope(t, short))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		requireUnchanged(t, before, dump(t, l))

		fromAcc, err := l.Account(from)
		require.NoError(t, err)
		assert.Equal(t, uint64(999), fromAcc.Token.Amount)
		assert.True(t, fromAcc.Token.Delegate.IsZero())
		assert.Equal(t, uint64(0), fromAcc.Token.DelegatedAmount)

		events, err := l.Events()
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestSubmitSignatures(t *testing.T) {
	l, cfg, _ := newLedger(t)

	t.Run("tampered message", func(t *testing.T) {
		s := testutils.InitBalance(t, cfg, cfg.StakingBridge)
		env := envelope(t, s)
		env.Message.Data = append(env.Message.Data, 0)
		assert.ErrorIs(t, l.Submit(env), ErrInvalidSignature)
	})

	t.Run("duplicate signature", func(t *testing.T) {
		s := testutils.InitBalance(t, cfg, cfg.StakingBridge)
		env := envelope(t, s)
		env.Signatures = append(env.Signatures, env.Signatures[0])
		assert.ErrorIs(t, l.Submit(env), ErrDuplicateSignature)
	})

	t.Run("unsigned payer", func(t *testing.T) {
		s := testutils.InitBalance(t, cfg, cfg.StakingBridge)
		seed(t, l, s)
		env := envelope(t, s)
		env.Signatures = nil
		err := l.Submit(env)
		assert.ErrorIs(t, err, account.ErrMissingSignature)
	})
}

func TestEnvelopeRoundTrip(t *testing.T) {
	_, cfg, _ := newLedger(t)
	env := envelope(t, testutils.Bridge(t, cfg, 5, 1))

	b, err := env.Bytes()
	require.NoError(t, err)
	decoded, err := DecodeEnvelope(b)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)

	signers, err := decoded.Signers()
	require.NoError(t, err)
	assert.Len(t, signers, 2)
}

func TestReopenKeepsEvents(t *testing.T) {
	l, cfg, store := newLedger(t)
	s := testutils.Route(t, cfg, []uint64{1, 2}, 3)
	seed(t, l, s)
	require.NoError(t, l.Submit(envelope(t, s)))
	l.Close()
	assert.ErrorIs(t, l.Submit(envelope(t, s)), ErrLedgerClosed)

	reopened, err := New(store, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reopened.eventCount)

	next := testutils.Route(t, cfg, []uint64{4}, 4)
	seed(t, reopened, next)
	require.NoError(t, reopened.Submit(envelope(t, next)))
	events, err := reopened.Events()
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestSwapOut(t *testing.T) {
	tests := []struct {
		in, reserveIn, reserveOut, want uint64
	}{
		{10_000, 1_000_000, 1_000_000, 9_876},
		{0, 1_000_000, 1_000_000, 0},
		{1_000_000, 1_000_000, 1_000_000, 499_374},
	}
	for _, tc := range tests {
		got, ok := SwapOut(tc.in, tc.reserveIn, tc.reserveOut)
		require.True(t, ok)
		assert.Equal(t, tc.want, got, "in=%d", tc.in)
	}
}

func TestHandleCall(t *testing.T) {
	l, cfg, _ := newLedger(t)
	s := testutils.Route(t, cfg, []uint64{5}, 5)
	seed(t, l, s)

	b, err := envelope(t, s).Bytes()
	require.NoError(t, err)
	require.NoError(t, l.HandleCall(context.Background(), b))
	assert.Equal(t, uint64(5), tokenAmount(t, l, s.Remaining[0].Key))

	assert.Error(t, l.HandleCall(context.Background(), []byte{1, 2, 3}))
}
