package db

// Reader serves point lookups and ordered range scans. Account reads and
// ledger snapshots only need this side of the store.
type Reader interface {
	Get(key []byte) ([]byte, error)
	NewIterator(start, end []byte) (Iterator, error)
}

type Writer interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// KVStore is the durable key-value store behind the ledger's account state.
type KVStore interface {
	Reader
	Writer
	NewBatch() Batch
	Close() error
}

// Batch groups writes that become visible together on Commit.
// Closing a batch without committing discards every write in it.
type Batch interface {
	Writer
	Commit() error
	Close() error
}

// Iterator walks the keys in [start, end) in ascending order.
// Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}
