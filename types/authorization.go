package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SecondsPerDay is used to convert the authorization duration to seconds.
const SecondsPerDay = 86400

// Authorization is a signed, time bounded grant that allows UserAddress to
// request the decryption of handles owned by ContractAddresses. The private
// key never leaves the client: it is excluded from the JSON encoding and is
// only kept by the client side caches.
type Authorization struct {
	PublicKey         HexBytes         `json:"publicKey"         cbor:"0,keyasint"`
	PrivateKey        HexBytes         `json:"-"                 cbor:"1,keyasint,omitempty"`
	UserAddress       common.Address   `json:"userAddress"       cbor:"2,keyasint"`
	ContractAddresses []common.Address `json:"contractAddresses" cbor:"3,keyasint"`
	StartTimestamp    int64            `json:"startTimestamp"    cbor:"4,keyasint"`
	DurationDays      uint64           `json:"durationDays"      cbor:"5,keyasint"`
	Signature         HexBytes         `json:"signature"         cbor:"6,keyasint"`
}

// Expiration returns the first instant at which the authorization is no
// longer valid.
func (a *Authorization) Expiration() time.Time {
	return time.Unix(a.StartTimestamp+int64(a.DurationDays)*SecondsPerDay, 0)
}

// ExpiredAt reports whether the authorization is expired at t.
func (a *Authorization) ExpiredAt(t time.Time) bool {
	return !t.Before(a.Expiration())
}

// Covers reports whether contract is in the authorization scope.
func (a *Authorization) Covers(contract common.Address) bool {
	for _, c := range a.ContractAddresses {
		if c == contract {
			return true
		}
	}
	return false
}

// Public returns a copy of the authorization without the private key, ready
// to be sent to the decryption oracle.
func (a *Authorization) Public() *Authorization {
	cp := *a
	cp.PrivateKey = nil
	cp.ContractAddresses = append([]common.Address(nil), a.ContractAddresses...)
	return &cp
}
