package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/types"
)

// grantValue is stored for every (handle, address) pair that is permitted.
var grantValue = []byte{1}

func grantKey(h types.Handle, addr common.Address) []byte {
	key := make([]byte, 0, types.HandleSize+common.AddressLength)
	key = append(key, h[:]...)
	return append(key, addr.Bytes()...)
}

// GrantAccess permits every address in addrs to request the decryption of
// h. If b is nil the grants are committed right away, otherwise they are
// added to the batch.
func (s *Storage) GrantAccess(b *Batch, h types.Handle, addrs ...common.Address) error {
	return s.withBatch(b, func(b *Batch) error {
		wTx := b.prefixed(aclPrefix)
		for _, addr := range addrs {
			if err := wTx.Set(grantKey(h, addr), grantValue); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasAccess reports whether addr has been granted access to h.
func (s *Storage) HasAccess(h types.Handle, addr common.Address) bool {
	return s.hasKey(aclPrefix, grantKey(h, addr))
}

// AccessList returns every address granted access to h.
func (s *Storage) AccessList(h types.Handle) ([]common.Address, error) {
	keys, err := s.listArtifacts(append(append([]byte(nil), aclPrefix...), h[:]...))
	if err != nil {
		return nil, err
	}
	addrs := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		addrs = append(addrs, common.BytesToAddress(k))
	}
	return addrs, nil
}
