// Package storage contains all the artifacts of the confidential ballot that
// are persisted in the database. It is a prefixed key-value store where each
// artifact is encoded with cbor. The following prefixes are used:
//   - 'fv/' for ciphertext values kept by the coprocessor
//   - 'acl/' for access grants (handle || address)
//   - 'vs/' for vote slots (voter address)
//   - 'ct/' for candidate totals (candidate id)
//   - 'az/' for cached decryption authorizations
//   - 'st/' for the ledger state tree
//
// Writes that must be applied together are grouped in a Batch.
package storage

import (
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	valuePrefix = []byte("fv/")
	aclPrefix   = []byte("acl/")
	slotPrefix  = []byte("vs/")
	totalPrefix = []byte("ct/")
	authzPrefix = []byte("az/")
	treePrefix  = []byte("st/")

	// ErrNotFound is returned when an artifact is not found in the storage.
	ErrNotFound = errors.New("not found")
)

const (
	// maxKeySize is the maximum size of the key in bytes. It is used to
	// generate the key of the artifacts stored in the database by truncating
	// the hash of the artifact itself.
	maxKeySize = 12
)

// Storage wraps the database and provides typed access to the artifacts.
type Storage struct {
	db db.Database
	// globalLock protects read-modify-write sequences that span several
	// keys outside of a Batch.
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}

// TreeDatabase returns the prefixed database where the ledger state tree
// lives. Writes to the tree should go through Batch.TreeTx so they are
// committed together with the rest of the ledger artifacts.
func (s *Storage) TreeDatabase() db.Database {
	return prefixeddb.NewPrefixedDatabase(s.db, treePrefix)
}

// setArtifact encodes and stores an artifact under prefix+key in its own
// transaction.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := setArtifactTx(wTx, key, artifact); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact loads and decodes the artifact stored under prefix+key into
// out. It returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// deleteArtifact removes the artifact stored under prefix+key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return wTx.Commit()
}

// hasKey reports whether prefix+key exists.
func (s *Storage) hasKey(prefix, key []byte) bool {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	_, err := rd.Get(key)
	return err == nil
}

// listArtifacts returns the keys (without prefix) stored under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	var keys [][]byte
	if err := rd.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
