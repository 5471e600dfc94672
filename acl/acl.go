// Package acl keeps the access control list of the ciphertext handles: the
// set of addresses allowed to request the decryption of each handle.
// Grants are monotonic, there is no revoke.
package acl

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
)

// ErrUninitializedHandle is returned when granting access to the zero handle.
var ErrUninitializedHandle = errors.New("cannot grant access to an uninitialized handle")

// Checker is the read side of the list, consulted before any disclosure.
type Checker interface {
	IsPermitted(h types.Handle, addr common.Address) bool
}

// List is the persistent access control list.
type List struct {
	stg *storage.Storage
}

// New returns a List backed by stg.
func New(stg *storage.Storage) *List {
	return &List{stg: stg}
}

// Grant permits addrs to request the decryption of h.
func (l *List) Grant(h types.Handle, addrs ...common.Address) error {
	return l.GrantBatch(nil, h, addrs...)
}

// GrantBatch adds the grants to b, so they are committed together with the
// rest of the batch. A nil batch commits right away.
func (l *List) GrantBatch(b *storage.Batch, h types.Handle, addrs ...common.Address) error {
	if h.IsZero() {
		return ErrUninitializedHandle
	}
	for _, a := range addrs {
		if a == (common.Address{}) {
			return fmt.Errorf("cannot grant access to the zero address")
		}
	}
	if err := l.stg.GrantAccess(b, h, addrs...); err != nil {
		return fmt.Errorf("grant access to %s: %w", h, err)
	}
	log.Debugw("access granted", "handle", h.String(), "addresses", len(addrs))
	return nil
}

// IsPermitted reports whether addr may request the decryption of h.
func (l *List) IsPermitted(h types.Handle, addr common.Address) bool {
	if h.IsZero() {
		return false
	}
	return l.stg.HasAccess(h, addr)
}

// Permitted returns every address allowed to decrypt h.
func (l *List) Permitted(h types.Handle) ([]common.Address, error) {
	if h.IsZero() {
		return nil, nil
	}
	return l.stg.AccessList(h)
}
