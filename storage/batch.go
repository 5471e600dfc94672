package storage

import (
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Batch groups several writes, possibly under different prefixes, into a
// single database transaction. Nothing is visible to readers until Commit.
// A Batch is not safe for concurrent use.
type Batch struct {
	tx   db.WriteTx
	done bool
}

// NewBatch opens a new write batch.
func (s *Storage) NewBatch() *Batch {
	return &Batch{tx: s.db.WriteTx()}
}

// prefixed returns a write transaction scoped to prefix that shares the
// batch transaction. Commit and Discard must be called on the batch, never
// on the returned transaction.
func (b *Batch) prefixed(prefix []byte) db.WriteTx {
	return prefixeddb.NewPrefixedWriteTx(b.tx, prefix)
}

// TreeTx returns the write transaction to be used with the ledger state
// tree (arbo AddWithTx / UpdateWithTx).
func (b *Batch) TreeTx() db.WriteTx {
	return b.prefixed(treePrefix)
}

// Commit writes all the batched changes atomically.
func (b *Batch) Commit() error {
	if b.done {
		return fmt.Errorf("batch already closed")
	}
	b.done = true
	return b.tx.Commit()
}

// Discard drops all the batched changes. It is safe to call after Commit.
func (b *Batch) Discard() {
	if b.done {
		return
	}
	b.done = true
	b.tx.Discard()
}

// withBatch runs fn on b, or on a new batch committed right after fn when b
// is nil.
func (s *Storage) withBatch(b *Batch, fn func(*Batch) error) error {
	if b != nil {
		return fn(b)
	}
	b = s.NewBatch()
	defer b.Discard()
	if err := fn(b); err != nil {
		return err
	}
	return b.Commit()
}
