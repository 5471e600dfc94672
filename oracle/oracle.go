// Package oracle implements the decryption oracle: it discloses the
// plaintext behind ciphertext handles to the holder of a valid decryption
// authorization, provided both the user and the contract are in the
// handle access list. Plaintexts travel sealed (ECIES) to the ephemeral
// public key of the authorization.
package oracle

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"github.com/google/uuid"
	"github.com/vocdoni/fhe-ballot/acl"
	"github.com/vocdoni/fhe-ballot/auth"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/types"
)

// MaxHandlesPerRequest bounds the size of a decryption request.
const MaxHandlesPerRequest = 64

var (
	// ErrAccessDenied is returned when any handle of the request is not
	// accessible by the user or by its contract. Nothing is disclosed.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidRequest is returned for empty or oversized requests.
	ErrInvalidRequest = errors.New("invalid decryption request")
)

// HandleContractPair names a handle and the contract it belongs to.
type HandleContractPair struct {
	Handle   types.Handle   `json:"handle"`
	Contract common.Address `json:"contract"`
}

// Request is a user decryption request.
type Request struct {
	Handles       []HandleContractPair `json:"handles"`
	Authorization *types.Authorization `json:"authorization"`
}

// Response maps every requested handle to its sealed plaintext.
type Response struct {
	RequestID string                          `json:"requestId"`
	Values    map[types.Handle]types.HexBytes `json:"values"`
}

// Oracle is safe for concurrent use, it keeps no state besides its
// collaborators.
type Oracle struct {
	domain auth.Domain
	acl    acl.Checker
	dec    fhe.Decrypter
	clock  clock.Clock
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithClock sets the clock used to check the authorization window.
func WithClock(c clock.Clock) Option {
	return func(o *Oracle) {
		o.clock = c
	}
}

// New returns an oracle that accepts authorizations signed for domain.
func New(domain auth.Domain, checker acl.Checker, dec fhe.Decrypter, opts ...Option) *Oracle {
	o := &Oracle{
		domain: domain,
		acl:    checker,
		dec:    dec,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Domain returns the authorization domain accepted by the oracle.
func (o *Oracle) Domain() auth.Domain {
	return o.domain
}

// UserDecrypt checks the authorization and the access list for every
// handle of req and returns the plaintexts sealed to the authorization
// public key. The request is all or nothing: if any handle is not
// permitted, ErrAccessDenied is returned and no value is disclosed.
func (o *Oracle) UserDecrypt(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || len(req.Handles) == 0 {
		return nil, fmt.Errorf("%w: no handles", ErrInvalidRequest)
	}
	if len(req.Handles) > MaxHandlesPerRequest {
		return nil, fmt.Errorf("%w: %d handles, max %d", ErrInvalidRequest, len(req.Handles), MaxHandlesPerRequest)
	}
	requestID := uuid.New().String()
	authz := req.Authorization
	if err := auth.Verify(authz, o.domain, o.clock.Now()); err != nil {
		log.Warnw("decryption refused",
			"requestId", requestID,
			"error", err.Error())
		return nil, err
	}
	user := authz.UserAddress
	for _, p := range req.Handles {
		if p.Contract == user {
			return nil, fmt.Errorf("%w: user address used as contract", auth.ErrAuthorizationInvalid)
		}
		if !authz.Covers(p.Contract) {
			return nil, fmt.Errorf("%w: contract %s not in scope", auth.ErrAuthorizationInvalid, p.Contract.Hex())
		}
	}
	for _, p := range req.Handles {
		if !o.acl.IsPermitted(p.Handle, user) || !o.acl.IsPermitted(p.Handle, p.Contract) {
			log.Warnw("decryption access denied",
				"requestId", requestID,
				"user", user.Hex(),
				"contract", p.Contract.Hex(),
				"handle", p.Handle.String())
			return nil, fmt.Errorf("%w: %s", ErrAccessDenied, p.Handle)
		}
	}

	pub, err := ethcrypto.DecompressPubkey(authz.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrAuthorizationInvalid, err)
	}
	sealKey := ecies.ImportECDSAPublic(pub)
	values := make(map[types.Handle]types.HexBytes, len(req.Handles))
	for _, p := range req.Handles {
		if _, ok := values[p.Handle]; ok {
			continue
		}
		v, err := o.dec.Plaintext(p.Handle)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", p.Handle, err)
		}
		sealed, err := ecies.Encrypt(rand.Reader, sealKey, binary.BigEndian.AppendUint64(nil, v), nil, nil)
		if err != nil {
			return nil, fmt.Errorf("seal %s: %w", p.Handle, err)
		}
		values[p.Handle] = sealed
	}
	log.Debugw("user decryption served",
		"requestId", requestID,
		"user", user.Hex(),
		"handles", len(values))
	return &Response{RequestID: requestID, Values: values}, nil
}

// Open decrypts a sealed value with the authorization private key. It runs
// on the client.
func Open(privateKey []byte, sealed []byte) (uint64, error) {
	key, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return 0, fmt.Errorf("invalid private key: %w", err)
	}
	plain, err := ecies.ImportECDSA(key).Decrypt(sealed, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("open sealed value: %w", err)
	}
	if len(plain) != 8 {
		return 0, fmt.Errorf("unexpected plaintext length %d", len(plain))
	}
	return binary.BigEndian.Uint64(plain), nil
}

// OpenAll opens every value of resp with the private key of authz.
func OpenAll(authz *types.Authorization, resp *Response) (map[types.Handle]uint64, error) {
	if authz == nil || len(authz.PrivateKey) == 0 {
		return nil, fmt.Errorf("authorization without private key")
	}
	out := make(map[types.Handle]uint64, len(resp.Values))
	for h, sealed := range resp.Values {
		v, err := Open(authz.PrivateKey, sealed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h, err)
		}
		out[h] = v
	}
	return out, nil
}
