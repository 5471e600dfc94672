package storage

import (
	"fmt"

	"github.com/vocdoni/fhe-ballot/types"
)

// SetCiphertextValue stores the value record behind a handle.
func (s *Storage) SetCiphertextValue(h types.Handle, v *types.CiphertextValue) error {
	if v == nil {
		return fmt.Errorf("nil ciphertext value")
	}
	return s.setArtifact(valuePrefix, h[:], v)
}

// CiphertextValue loads the value record behind a handle. It returns
// ErrNotFound if the handle is unknown.
func (s *Storage) CiphertextValue(h types.Handle) (*types.CiphertextValue, error) {
	v := &types.CiphertextValue{}
	if err := s.getArtifact(valuePrefix, h[:], v); err != nil {
		return nil, err
	}
	return v, nil
}

// HasCiphertextValue reports whether the handle is known.
func (s *Storage) HasCiphertextValue(h types.Handle) bool {
	return s.hasKey(valuePrefix, h[:])
}
