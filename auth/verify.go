package auth

import (
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/types"
)

const (
	// DefaultDurationDays is the validity of a new authorization.
	DefaultDurationDays = 365
	// MaxDurationDays is the longest validity accepted.
	MaxDurationDays = 365
	// ClockSkew is the tolerance applied to authorizations whose start
	// time is slightly ahead of the verifier clock.
	ClockSkew = time.Minute
)

var (
	// ErrUserRejectedSignature is returned when the user declines (or
	// fails) to sign a new authorization.
	ErrUserRejectedSignature = errors.New("user rejected the signature request")
	// ErrAuthorizationInvalid is returned for forged, malformed or not yet
	// valid authorizations, and for requests outside their scope.
	ErrAuthorizationInvalid = errors.New("invalid decryption authorization")
	// ErrAuthorizationExpired is returned once the validity window is over.
	ErrAuthorizationExpired = errors.New("decryption authorization expired")
)

// Verify checks that a was signed by its user for exactly the bound tuple
// under domain d and that it is valid at now.
func Verify(a *types.Authorization, d Domain, now time.Time) error {
	if a == nil {
		return fmt.Errorf("%w: missing authorization", ErrAuthorizationInvalid)
	}
	if len(a.ContractAddresses) == 0 {
		return fmt.Errorf("%w: empty contract scope", ErrAuthorizationInvalid)
	}
	for i := 1; i < len(a.ContractAddresses); i++ {
		if a.ContractAddresses[i-1].Cmp(a.ContractAddresses[i]) >= 0 {
			return fmt.Errorf("%w: contract addresses must be sorted and unique", ErrAuthorizationInvalid)
		}
	}
	if a.DurationDays == 0 || a.DurationDays > MaxDurationDays {
		return fmt.Errorf("%w: duration of %d days", ErrAuthorizationInvalid, a.DurationDays)
	}
	if _, err := ethcrypto.DecompressPubkey(a.PublicKey); err != nil {
		return fmt.Errorf("%w: public key: %v", ErrAuthorizationInvalid, err)
	}
	signer, err := ethereum.AddrFromTypedDataSignature(TypedData(d, a), a.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorizationInvalid, err)
	}
	if signer != a.UserAddress {
		return fmt.Errorf("%w: signed by %s, not by %s", ErrAuthorizationInvalid, signer.Hex(), a.UserAddress.Hex())
	}
	if time.Unix(a.StartTimestamp, 0).After(now.Add(ClockSkew)) {
		return fmt.Errorf("%w: not valid before %d", ErrAuthorizationInvalid, a.StartTimestamp)
	}
	if a.ExpiredAt(now) {
		return fmt.Errorf("%w: at %s", ErrAuthorizationExpired, a.Expiration().UTC().Format(time.RFC3339))
	}
	return nil
}
