package fhe

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
	"github.com/vocdoni/fhe-ballot/util"
)

// operation codes mixed into the handle derivation
const (
	opInput byte = iota + 1
	opTrivialEncrypt
	opAdd
	opSub
	opEqScalar
	opSelect
	opCast
)

const handleNonceSize = 16

var (
	_ Store     = (*Coprocessor)(nil)
	_ Decrypter = (*Coprocessor)(nil)
)

// Coprocessor is the in-process stand-in of the FHE coprocessor. Values are
// kept in plaintext in the storage, keyed by their handle, and never leave
// this type except through Plaintext. Input proofs are EIP-712 signatures
// of the input verifier key over the encrypted handles.
type Coprocessor struct {
	stg      *storage.Storage
	chainID  uint64
	domain   apitypes.TypedDataDomain
	verifier *ethereum.SignKeys
}

// NewCoprocessor creates a Coprocessor that stores its values in stg and
// signs input proofs with verifier, for the input verification contract
// deployed at inputVerifier on chainID.
func NewCoprocessor(stg *storage.Storage, chainID uint64, inputVerifier common.Address,
	verifier *ethereum.SignKeys,
) *Coprocessor {
	return &Coprocessor{
		stg:      stg,
		chainID:  chainID,
		domain:   ethereum.NewDomain(InputVerificationDomainName, InputVerificationDomainVersion, chainID, inputVerifier),
		verifier: verifier,
	}
}

// VerifierAddress returns the address of the input verifier key.
func (c *Coprocessor) VerifierAddress() common.Address {
	return c.verifier.Address()
}

func mask(typ uint8, v uint64) uint64 {
	if typ == types.TypeBool {
		return v & 1
	}
	return v & 0xffffffff
}

// put stores value under a fresh handle derived from the operation and its
// operands.
func (c *Coprocessor) put(typ uint8, value uint64, op byte, operands ...[]byte) (types.Handle, error) {
	var buf bytes.Buffer
	buf.WriteByte(op)
	for _, o := range operands {
		buf.Write(o)
	}
	buf.Write(util.RandomBytes(handleNonceSize))
	h := types.NewHandle(ethereum.HashRaw(buf.Bytes()), typ)
	if err := c.stg.SetCiphertextValue(h, &types.CiphertextValue{Type: typ, Value: mask(typ, value)}); err != nil {
		return types.ZeroHandle, fmt.Errorf("store ciphertext value: %w", err)
	}
	return h, nil
}

// get loads the value behind h, checking its type.
func (c *Coprocessor) get(h types.Handle, typ uint8) (uint64, error) {
	if h.IsZero() {
		return 0, fmt.Errorf("%w: uninitialized handle", ErrUnknownHandle)
	}
	v, err := c.stg.CiphertextValue(h)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		return 0, err
	}
	if v.Type != typ {
		return 0, fmt.Errorf("%w: handle %s has type %d, expected %d", ErrTypeMismatch, h, v.Type, typ)
	}
	return v.Value, nil
}

func scalarBytes(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// TrivialEncrypt implements Store.
func (c *Coprocessor) TrivialEncrypt(v uint32) (Ciphertext[Uint32], error) {
	h, err := c.put(types.TypeUint32, uint64(v), opTrivialEncrypt, scalarBytes(v))
	return Ciphertext[Uint32]{handle: h}, err
}

// Add implements Store.
func (c *Coprocessor) Add(a, b Ciphertext[Uint32]) (Ciphertext[Uint32], error) {
	return c.binary(opAdd, a, b, func(x, y uint64) uint64 { return x + y })
}

// Sub implements Store.
func (c *Coprocessor) Sub(a, b Ciphertext[Uint32]) (Ciphertext[Uint32], error) {
	return c.binary(opSub, a, b, func(x, y uint64) uint64 { return x - y })
}

func (c *Coprocessor) binary(op byte, a, b Ciphertext[Uint32], fn func(x, y uint64) uint64) (Ciphertext[Uint32], error) {
	x, err := c.get(a.handle, types.TypeUint32)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	y, err := c.get(b.handle, types.TypeUint32)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	h, err := c.put(types.TypeUint32, fn(x, y), op, a.handle[:], b.handle[:])
	return Ciphertext[Uint32]{handle: h}, err
}

// EqScalar implements Store.
func (c *Coprocessor) EqScalar(a Ciphertext[Uint32], v uint32) (Ciphertext[Bool], error) {
	x, err := c.get(a.handle, types.TypeUint32)
	if err != nil {
		return Ciphertext[Bool]{}, err
	}
	var eq uint64
	if x == uint64(v) {
		eq = 1
	}
	h, err := c.put(types.TypeBool, eq, opEqScalar, a.handle[:], scalarBytes(v))
	return Ciphertext[Bool]{handle: h}, err
}

// Select implements Store.
func (c *Coprocessor) Select(cond Ciphertext[Bool], ifTrue, ifFalse Ciphertext[Uint32]) (Ciphertext[Uint32], error) {
	b, err := c.get(cond.handle, types.TypeBool)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	x, err := c.get(ifTrue.handle, types.TypeUint32)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	y, err := c.get(ifFalse.handle, types.TypeUint32)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	v := y
	if b == 1 {
		v = x
	}
	h, err := c.put(types.TypeUint32, v, opSelect, cond.handle[:], ifTrue.handle[:], ifFalse.handle[:])
	return Ciphertext[Uint32]{handle: h}, err
}

// Cast implements Store.
func (c *Coprocessor) Cast(b Ciphertext[Bool]) (Ciphertext[Uint32], error) {
	v, err := c.get(b.handle, types.TypeBool)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	h, err := c.put(types.TypeUint32, v, opCast, b.handle[:])
	return Ciphertext[Uint32]{handle: h}, err
}

// EncryptInput encrypts values on behalf of sender for contract and returns
// their handles together with the proof binding them to (contract, sender).
// It plays the role of the client side encryption library.
func (c *Coprocessor) EncryptInput(contract, sender common.Address, values ...uint32) ([]types.Handle, InputProof, error) {
	if len(values) == 0 || len(values) > MaxInputHandles {
		return nil, nil, fmt.Errorf("invalid number of values %d", len(values))
	}
	handles := make([]types.Handle, len(values))
	for i, v := range values {
		h, err := c.put(types.TypeUint32, uint64(v), opInput,
			contract.Bytes(), sender.Bytes(), []byte{byte(i)})
		if err != nil {
			return nil, nil, err
		}
		handles[i] = h
	}
	td := inputTypedData(c.domain, handles, sender, contract, c.chainID)
	sig, err := c.verifier.SignTypedData(context.Background(), td)
	if err != nil {
		return nil, nil, fmt.Errorf("sign input proof: %w", err)
	}
	proof, err := encodeInputProof(handles, sig)
	if err != nil {
		return nil, nil, err
	}
	log.Debugw("encrypted input",
		"contract", contract.Hex(),
		"sender", sender.Hex(),
		"handles", len(handles))
	return handles, proof, nil
}

// VerifyInputProof implements Store.
func (c *Coprocessor) VerifyInputProof(h types.Handle, proof InputProof, contract, sender common.Address,
	r Range,
) (Ciphertext[Uint32], error) {
	handles, sigs, err := decodeInputProof(proof)
	if err != nil {
		return Ciphertext[Uint32]{}, err
	}
	found := false
	for _, ph := range handles {
		if ph == h {
			found = true
			break
		}
	}
	if !found {
		return Ciphertext[Uint32]{}, fmt.Errorf("%w: handle %s not bound by the proof", ErrInvalidProof, h)
	}
	td := inputTypedData(c.domain, handles, sender, contract, c.chainID)
	for _, sig := range sigs {
		signer, err := ethereum.AddrFromTypedDataSignature(td, sig)
		if err != nil {
			return Ciphertext[Uint32]{}, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		if signer != c.verifier.Address() {
			return Ciphertext[Uint32]{}, fmt.Errorf("%w: unexpected signer %s", ErrInvalidProof, signer.Hex())
		}
	}
	v, err := c.get(h, types.TypeUint32)
	if err != nil {
		return Ciphertext[Uint32]{}, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if !r.Contains(v) {
		return Ciphertext[Uint32]{}, fmt.Errorf("%w: [%d, %d]", ErrOutOfRange, r.Min, r.Max)
	}
	return Ciphertext[Uint32]{handle: h}, nil
}

// Plaintext implements Decrypter.
func (c *Coprocessor) Plaintext(h types.Handle) (uint64, error) {
	if h.IsZero() {
		return 0, fmt.Errorf("%w: uninitialized handle", ErrUnknownHandle)
	}
	v, err := c.stg.CiphertextValue(h)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
		}
		return 0, err
	}
	return v.Value, nil
}
