package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HandleSize is the size in bytes of a ciphertext handle.
const HandleSize = 32

const (
	// handleTypeIndex is the byte of the handle that carries the type of the
	// encrypted value.
	handleTypeIndex = 30
	// handleVersionIndex is the byte of the handle that carries the handle
	// format version.
	handleVersionIndex = 31
	// HandleVersion is the current handle format version.
	HandleVersion = 0
)

// Ciphertext types encoded in a handle.
const (
	TypeBool   uint8 = 0
	TypeUint32 uint8 = 4
)

// Handle is an opaque reference to an encrypted value. It carries no
// plaintext. The zero handle means "uninitialized".
type Handle [HandleSize]byte

// ZeroHandle is the uninitialized handle.
var ZeroHandle = Handle{}

// NewHandle builds a handle from a 32 bytes digest, stamping the ciphertext
// type and the handle version on the last two bytes.
func NewHandle(digest []byte, typ uint8) Handle {
	var h Handle
	copy(h[:], digest)
	h[handleTypeIndex] = typ
	h[handleVersionIndex] = HandleVersion
	return h
}

// BytesToHandle converts a byte slice to a Handle. It returns an error if
// the length is not HandleSize.
func BytesToHandle(b []byte) (Handle, error) {
	var h Handle
	if len(b) != HandleSize {
		return h, fmt.Errorf("invalid handle length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HexToHandle parses a hex string (with or without 0x prefix) as a Handle.
func HexToHandle(s string) (Handle, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle: %w", err)
	}
	return BytesToHandle(b)
}

// IsZero reports whether h is the uninitialized handle.
func (h Handle) IsZero() bool {
	return h == ZeroHandle
}

// Type returns the ciphertext type stamped on the handle.
func (h Handle) Type() uint8 {
	return h[handleTypeIndex]
}

// Bytes returns a copy of the handle bytes.
func (h Handle) Bytes() []byte {
	b := make([]byte, HandleSize)
	copy(b, h[:])
	return b
}

func (h Handle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := HexToHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
