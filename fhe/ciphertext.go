package fhe

import (
	"fmt"

	"github.com/vocdoni/fhe-ballot/types"
)

// Uint32 tags ciphertexts of encrypted 32 bit unsigned integers.
type Uint32 struct{}

// Bool tags ciphertexts of encrypted booleans.
type Bool struct{}

// Kind is the set of plaintext types a Ciphertext can hide.
type Kind interface {
	Uint32 | Bool
}

// Ciphertext is a typed, opaque reference to an encrypted value of kind T.
// It carries no plaintext and can only be combined through a Store.
type Ciphertext[T Kind] struct {
	handle types.Handle
}

// Handle returns the underlying handle.
func (c Ciphertext[T]) Handle() types.Handle {
	return c.handle
}

// IsZero reports whether the ciphertext is uninitialized.
func (c Ciphertext[T]) IsZero() bool {
	return c.handle.IsZero()
}

func (c Ciphertext[T]) String() string {
	return c.handle.String()
}

// TypeOf returns the handle type byte used for kind T.
func TypeOf[T Kind]() uint8 {
	var t T
	switch any(t).(type) {
	case Bool:
		return types.TypeBool
	default:
		return types.TypeUint32
	}
}

// FromHandle wraps h as a ciphertext of kind T. It fails if the type stamped
// on the handle does not match T. The zero handle is accepted and yields
// the uninitialized ciphertext.
func FromHandle[T Kind](h types.Handle) (Ciphertext[T], error) {
	if h.IsZero() {
		return Ciphertext[T]{}, nil
	}
	if h.Type() != TypeOf[T]() {
		return Ciphertext[T]{}, fmt.Errorf("%w: handle %s has type %d, expected %d",
			ErrTypeMismatch, h, h.Type(), TypeOf[T]())
	}
	return Ciphertext[T]{handle: h}, nil
}
