package storage

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/types"
)

// AuthorizationKey builds the cache key of an authorization from the
// requester and the sorted contract addresses.
func AuthorizationKey(requester common.Address, contracts []common.Address) []byte {
	var buf bytes.Buffer
	buf.Write(requester.Bytes())
	for _, c := range contracts {
		buf.Write(c.Bytes())
	}
	return hashKey(buf.Bytes())
}

// Authorization returns the cached authorization stored under key. It
// returns ErrNotFound if there is none.
func (s *Storage) Authorization(key []byte) (*types.Authorization, error) {
	a := &types.Authorization{}
	if err := s.getArtifact(authzPrefix, key, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetAuthorization stores an authorization (private key included) under key.
func (s *Storage) SetAuthorization(key []byte, a *types.Authorization) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.setArtifact(authzPrefix, key, a)
}

// DeleteAuthorization removes the authorization stored under key. Deleting
// a missing key is not an error.
func (s *Storage) DeleteAuthorization(key []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if !s.hasKey(authzPrefix, key) {
		return nil
	}
	return s.deleteArtifact(authzPrefix, key)
}
