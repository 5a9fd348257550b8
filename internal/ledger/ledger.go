// Package ledger is a reference runtime for the programs: an account store on
// a key-value database, signature attestation, and reference implementations
// of the token, system, swap and bridge programs the processor calls.
//
// Calls are serialized. Each call runs against an overlay of the store and
// its writes reach the database in one batch, only when the processor
// returns nil.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/OpenAudio/solana-programs/internal/account"
	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/instruction"
	"github.com/OpenAudio/solana-programs/internal/processor"
	"github.com/OpenAudio/solana-programs/pkg/db"
	"github.com/OpenAudio/solana-programs/pkg/db/pebble"
	"github.com/OpenAudio/solana-programs/pkg/log"
)

type Ledger struct {
	mu         sync.Mutex
	store      db.KVStore
	proc       *processor.Processor
	cfg        config.Config
	eventCount uint64
	closed     bool
	logger     zerolog.Logger
}

func New(store db.KVStore, cfg config.Config) (*Ledger, error) {
	proc, err := processor.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build processor: %w", err)
	}
	l := &Ledger{store: store, proc: proc, cfg: cfg, logger: log.Ledger}

	b, err := store.Get(keyEventCount)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read event count: %w", err)
	default:
		if l.eventCount, err = decodeUint64(b); err != nil {
			return nil, fmt.Errorf("read event count: %w", err)
		}
	}
	return l, nil
}

// Seed stores accounts directly, bypassing the programs. Accounts that were
// never created, and accounts the ledger already holds, are skipped.
func (l *Ledger) Seed(refs ...account.Ref) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLedgerClosed
	}

	batch := l.store.NewBatch()
	defer batch.Close()
	for _, r := range refs {
		a := FromRef(r)
		if !a.InUse() {
			continue
		}
		existing, err := readAccount(l.store, r.Key)
		if err != nil {
			return err
		}
		if existing.InUse() {
			continue
		}
		b, err := encodeAccount(a)
		if err != nil {
			return err
		}
		if err := batch.Put(accountKey(r.Key), b); err != nil {
			return fmt.Errorf("seed %s: %w", r.Key, err)
		}
	}
	return batch.Commit()
}

// Account returns the stored account at key.
func (l *Ledger) Account(key solana.PublicKey) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Account{}, ErrLedgerClosed
	}

	a, err := readAccount(l.store, key)
	if err != nil {
		return Account{}, err
	}
	if !a.InUse() {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return a, nil
}

// Submit verifies env's signatures and runs the call. On any error nothing
// the call did is kept.
func (l *Ledger) Submit(env Envelope) error {
	signers, err := env.Signers()
	if err != nil {
		return err
	}
	hash, err := env.Message.Hash()
	if err != nil {
		return fmt.Errorf("hash message: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLedgerClosed
	}

	msg := env.Message
	t := newTx(l.store, hash, msg.Program)
	for _, m := range msg.Accounts {
		t.grant(m.Key, signers[m.Key], m.Writable)
	}

	call := instruction.Call{Program: msg.Program, Data: msg.Data, Accounts: make([]account.Ref, 0, len(msg.Accounts))}
	for _, m := range msg.Accounts {
		a, err := t.load(m.Key)
		if err != nil {
			return err
		}
		meta := t.access[m.Key]
		call.Accounts = append(call.Accounts, a.ref(m.Key, meta.signer, meta.writable))
	}

	if err := l.proc.Process(call, l.ports(t)); err != nil {
		l.logger.Debug().Stringer("call", hash).Err(err).Msg("call discarded")
		return err
	}

	next, err := t.commit(l.eventCount)
	if err != nil {
		l.logger.Error().Stringer("call", hash).Err(err).Msg("commit failed")
		return err
	}
	l.logger.Debug().Stringer("call", hash).Int("accounts", len(t.order)).Int("events", len(t.events)).Msg("call committed")
	l.eventCount = next
	return nil
}

// HandleCall decodes an envelope received over the network and submits it.
func (l *Ledger) HandleCall(_ context.Context, payload []byte) error {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	return l.Submit(env)
}

// Events returns every committed event in order.
func (l *Ledger) Events() ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}

	iter, err := l.store.NewIterator([]byte{prefixEvent}, []byte{prefixEvent + 1})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []Event
	for iter.Next() {
		b, err := iter.Value()
		if err != nil {
			return nil, err
		}
		e, err := decodeEvent(b)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Snapshot returns every stored account keyed by address.
func (l *Ledger) Snapshot() (map[solana.PublicKey]Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLedgerClosed
	}

	iter, err := l.store.NewIterator([]byte{prefixAccount}, []byte{prefixAccount + 1})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make(map[solana.PublicKey]Account)
	for iter.Next() {
		key := iter.Key()
		if len(key) != 1+solana.PublicKeyLength {
			return nil, fmt.Errorf("malformed account key %x", key)
		}
		b, err := iter.Value()
		if err != nil {
			return nil, err
		}
		a, err := decodeAccount(b)
		if err != nil {
			return nil, err
		}
		out[solana.PublicKeyFromBytes(key[1:])] = a
	}
	return out, nil
}

// Close stops accepting calls. The store is owned by the caller.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}
