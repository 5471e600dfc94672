// Package fhe defines how the ballot consumes the FHE library: typed
// ciphertext handles, the homomorphic operators of the Store and the input
// proof check. It also ships Coprocessor, an in-process stand-in of the
// external coprocessor that keeps plaintext values behind the trusted
// boundary so the system can run end to end.
package fhe

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/types"
)

var (
	// ErrInvalidProof is returned when an input proof does not validate the
	// handle for the given contract and sender.
	ErrInvalidProof = errors.New("invalid input proof")
	// ErrOutOfRange is returned when a proven input is outside the
	// requested range.
	ErrOutOfRange = errors.New("input out of range")
	// ErrUnknownHandle is returned when a handle is not known by the store.
	ErrUnknownHandle = errors.New("unknown handle")
	// ErrTypeMismatch is returned when a handle does not carry the expected
	// ciphertext type.
	ErrTypeMismatch = errors.New("ciphertext type mismatch")
)

// InputProof is the evidence that a set of input handles was correctly
// formed and bound to a sender and a target contract.
type InputProof []byte

// Range bounds the plaintext of a proven input (both ends included).
type Range struct {
	Min uint32
	Max uint32
}

// Contains reports whether v is inside the range.
func (r Range) Contains(v uint64) bool {
	return v >= uint64(r.Min) && v <= uint64(r.Max)
}

// Store is the homomorphic side of the FHE library. All the operations are
// pure functions over handles: they never reveal plaintext and always
// return a new handle.
type Store interface {
	// TrivialEncrypt returns a ciphertext of the public value v.
	TrivialEncrypt(v uint32) (Ciphertext[Uint32], error)
	// Add returns a + b (mod 2^32).
	Add(a, b Ciphertext[Uint32]) (Ciphertext[Uint32], error)
	// Sub returns a - b (mod 2^32).
	Sub(a, b Ciphertext[Uint32]) (Ciphertext[Uint32], error)
	// EqScalar returns the encrypted result of a == v.
	EqScalar(a Ciphertext[Uint32], v uint32) (Ciphertext[Bool], error)
	// Select returns ifTrue when cond is true and ifFalse otherwise.
	Select(cond Ciphertext[Bool], ifTrue, ifFalse Ciphertext[Uint32]) (Ciphertext[Uint32], error)
	// Cast converts an encrypted boolean into an encrypted 0 or 1.
	Cast(b Ciphertext[Bool]) (Ciphertext[Uint32], error)
	// VerifyInputProof checks that proof validates h as a well formed
	// uint32 input bound to (contract, sender) and that its value is within
	// r. It returns ErrInvalidProof or ErrOutOfRange on failure.
	VerifyInputProof(h types.Handle, proof InputProof, contract, sender common.Address, r Range) (Ciphertext[Uint32], error)
}

// Decrypter reveals the plaintext behind a handle. Only the decryption
// oracle holds one.
type Decrypter interface {
	Plaintext(h types.Handle) (uint64, error)
}
