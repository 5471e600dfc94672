package auth

import (
	"encoding/hex"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
)

// Cache keeps the authorizations issued by a client, private key included.
// Implementations must be safe for concurrent use. Load returns nil and no
// error on a miss. Discarding a cache at any time is safe, the next use
// signs again.
type Cache interface {
	Load(key []byte) (*types.Authorization, error)
	Store(key []byte, a *types.Authorization) error
	Delete(key []byte) error
}

// CacheKey returns the cache key of the authorization of requester for the
// given contracts, which must be sorted and unique.
func CacheKey(requester common.Address, contracts []common.Address) []byte {
	return storage.AuthorizationKey(requester, contracts)
}

func clone(a *types.Authorization) *types.Authorization {
	if a == nil {
		return nil
	}
	cp := *a
	cp.PublicKey = append(types.HexBytes(nil), a.PublicKey...)
	cp.PrivateKey = append(types.HexBytes(nil), a.PrivateKey...)
	cp.Signature = append(types.HexBytes(nil), a.Signature...)
	cp.ContractAddresses = append([]common.Address(nil), a.ContractAddresses...)
	return &cp
}

// MemoryCache is a session scoped Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*types.Authorization
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*types.Authorization)}
}

// Load implements Cache.
func (c *MemoryCache) Load(key []byte) (*types.Authorization, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.entries[hex.EncodeToString(key)]), nil
}

// Store implements Cache.
func (c *MemoryCache) Store(key []byte, a *types.Authorization) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hex.EncodeToString(key)] = clone(a)
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, hex.EncodeToString(key))
	return nil
}

// Len returns the number of cached authorizations.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StorageCache is a persistent Cache backed by the storage.
type StorageCache struct {
	stg *storage.Storage
}

// NewStorageCache returns a Cache persisted in stg.
func NewStorageCache(stg *storage.Storage) *StorageCache {
	return &StorageCache{stg: stg}
}

// Load implements Cache.
func (c *StorageCache) Load(key []byte) (*types.Authorization, error) {
	a, err := c.stg.Authorization(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// Store implements Cache.
func (c *StorageCache) Store(key []byte, a *types.Authorization) error {
	return c.stg.SetAuthorization(key, a)
}

// Delete implements Cache.
func (c *StorageCache) Delete(key []byte) error {
	return c.stg.DeleteAuthorization(key)
}
