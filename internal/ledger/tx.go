package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/crypto"
	"github.com/OpenAudio/solana-programs/pkg/db"
	"github.com/OpenAudio/solana-programs/pkg/db/pebble"
)

type accessMeta struct {
	signer   bool
	writable bool
}

// tx is the overlay of one call. Reads fall through to the store; writes stay
// in the overlay until commit. Dropping a tx discards everything it wrote.
type tx struct {
	store  db.KVStore
	hash   crypto.Hash
	caller solana.PublicKey
	access map[solana.PublicKey]accessMeta
	dirty  map[solana.PublicKey]Account
	order  []solana.PublicKey
	events []Event
}

func newTx(store db.KVStore, hash crypto.Hash, caller solana.PublicKey) *tx {
	return &tx{
		store:  store,
		hash:   hash,
		caller: caller,
		access: make(map[solana.PublicKey]accessMeta),
		dirty:  make(map[solana.PublicKey]Account),
	}
}

func (t *tx) grant(key solana.PublicKey, signer, writable bool) {
	m := t.access[key]
	m.signer = m.signer || signer
	m.writable = m.writable || writable
	t.access[key] = m
}

// load returns the account as the call currently sees it. A missing account
// reads as the zero Account.
func (t *tx) load(key solana.PublicKey) (Account, error) {
	if _, ok := t.access[key]; !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotInCall, key)
	}
	if a, ok := t.dirty[key]; ok {
		return a, nil
	}
	return readAccount(t.store, key)
}

func (t *tx) save(key solana.PublicKey, a Account) error {
	m, ok := t.access[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotInCall, key)
	}
	if !m.writable {
		return fmt.Errorf("%w: %s", ErrReadOnlyAccount, key)
	}
	if _, seen := t.dirty[key]; !seen {
		t.order = append(t.order, key)
	}
	t.dirty[key] = a
	return nil
}

func (t *tx) signed(key solana.PublicKey) bool {
	return t.access[key].signer
}

func (t *tx) emit(e Event) {
	e.Call = t.hash
	t.events = append(t.events, e)
}

// commit writes every dirty account and event in one batch.
func (t *tx) commit(eventCount uint64) (uint64, error) {
	batch := t.store.NewBatch()
	defer batch.Close()

	for _, key := range t.order {
		b, err := encodeAccount(t.dirty[key])
		if err != nil {
			return eventCount, err
		}
		if err := batch.Put(accountKey(key), b); err != nil {
			return eventCount, fmt.Errorf("store account %s: %w", key, err)
		}
	}
	next := eventCount
	for _, e := range t.events {
		b, err := encodeEvent(e)
		if err != nil {
			return eventCount, err
		}
		if err := batch.Put(eventKey(next), b); err != nil {
			return eventCount, fmt.Errorf("store event: %w", err)
		}
		next++
	}
	if err := batch.Put(keyEventCount, encodeUint64(next)); err != nil {
		return eventCount, fmt.Errorf("store event count: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return eventCount, fmt.Errorf("commit batch: %w", err)
	}
	return next, nil
}

func readAccount(store db.Reader, key solana.PublicKey) (Account, error) {
	b, err := store.Get(accountKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return Account{}, nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %s: %w", key, err)
	}
	return decodeAccount(b)
}
