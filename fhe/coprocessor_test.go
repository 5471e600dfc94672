package fhe

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	testContract = common.HexToAddress("0xc0ffee0000000000000000000000000000000001")
	testVerifier = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testSender   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testChainID  = uint64(11155111)
)

func newTestCoprocessor(t *testing.T) *Coprocessor {
	t.Helper()
	key := ethereum.NewSignKeys()
	if err := key.Generate(); err != nil {
		t.Fatal(err)
	}
	return NewCoprocessor(storage.New(metadb.NewTest(t)), testChainID, testVerifier, key)
}

func plaintext(c *qt.C, cp *Coprocessor, h types.Handle) uint64 {
	v, err := cp.Plaintext(h)
	c.Assert(err, qt.IsNil)
	return v
}

func TestArithmetic(t *testing.T) {
	c := qt.New(t)
	cp := newTestCoprocessor(t)

	two, err := cp.TrivialEncrypt(2)
	c.Assert(err, qt.IsNil)
	three, err := cp.TrivialEncrypt(3)
	c.Assert(err, qt.IsNil)
	c.Assert(two.Handle().Type(), qt.Equals, types.TypeUint32)

	sum, err := cp.Add(two, three)
	c.Assert(err, qt.IsNil)
	c.Assert(plaintext(c, cp, sum.Handle()), qt.Equals, uint64(5))

	diff, err := cp.Sub(three, two)
	c.Assert(err, qt.IsNil)
	c.Assert(plaintext(c, cp, diff.Handle()), qt.Equals, uint64(1))

	// wraps around like an encrypted uint32
	wrapped, err := cp.Sub(two, three)
	c.Assert(err, qt.IsNil)
	c.Assert(plaintext(c, cp, wrapped.Handle()), qt.Equals, uint64(0xffffffff))

	eq, err := cp.EqScalar(two, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(eq.Handle().Type(), qt.Equals, types.TypeBool)
	c.Assert(plaintext(c, cp, eq.Handle()), qt.Equals, uint64(1))
	neq, err := cp.EqScalar(two, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(plaintext(c, cp, neq.Handle()), qt.Equals, uint64(0))

	one, err := cp.Cast(eq)
	c.Assert(err, qt.IsNil)
	c.Assert(one.Handle().Type(), qt.Equals, types.TypeUint32)
	c.Assert(plaintext(c, cp, one.Handle()), qt.Equals, uint64(1))

	sel, err := cp.Select(eq, two, three)
	c.Assert(err, qt.IsNil)
	c.Assert(plaintext(c, cp, sel.Handle()), qt.Equals, uint64(2))
	sel, err = cp.Select(neq, two, three)
	c.Assert(err, qt.IsNil)
	c.Assert(plaintext(c, cp, sel.Handle()), qt.Equals, uint64(3))

	// every operation yields a fresh handle, even for equal values
	again, err := cp.TrivialEncrypt(2)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Handle(), qt.Not(qt.Equals), two.Handle())
}

func TestTypeChecks(t *testing.T) {
	c := qt.New(t)
	cp := newTestCoprocessor(t)

	two, err := cp.TrivialEncrypt(2)
	c.Assert(err, qt.IsNil)
	eq, err := cp.EqScalar(two, 2)
	c.Assert(err, qt.IsNil)

	_, err = FromHandle[Bool](two.Handle())
	c.Assert(err, qt.ErrorIs, ErrTypeMismatch)
	b, err := FromHandle[Bool](eq.Handle())
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.Equals, eq)
	zero, err := FromHandle[Uint32](types.ZeroHandle)
	c.Assert(err, qt.IsNil)
	c.Assert(zero.IsZero(), qt.IsTrue)

	_, err = cp.Add(two, Ciphertext[Uint32]{})
	c.Assert(err, qt.ErrorIs, ErrUnknownHandle)
	_, err = cp.Add(two, Ciphertext[Uint32]{handle: types.NewHandle([]byte("unknown"), types.TypeUint32)})
	c.Assert(err, qt.ErrorIs, ErrUnknownHandle)
	// a bool handle smuggled as uint32 is refused by the store
	_, err = cp.Add(two, Ciphertext[Uint32]{handle: eq.Handle()})
	c.Assert(err, qt.ErrorIs, ErrTypeMismatch)
}

func TestInputProof(t *testing.T) {
	c := qt.New(t)
	cp := newTestCoprocessor(t)
	r := Range{Min: 1, Max: 2}

	handles, proof, err := cp.EncryptInput(testContract, testSender, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(handles, qt.HasLen, 1)

	ct, err := cp.VerifyInputProof(handles[0], proof, testContract, testSender, r)
	c.Assert(err, qt.IsNil)
	c.Assert(ct.Handle(), qt.Equals, handles[0])
	c.Assert(plaintext(c, cp, ct.Handle()), qt.Equals, uint64(2))

	// bound to the sender
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	_, err = cp.VerifyInputProof(handles[0], proof, testContract, other, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)

	// bound to the contract
	_, err = cp.VerifyInputProof(handles[0], proof, other, testSender, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)

	// the proof of another input does not cover this handle
	otherHandles, otherProof, err := cp.EncryptInput(testContract, testSender, 1)
	c.Assert(err, qt.IsNil)
	_, err = cp.VerifyInputProof(handles[0], otherProof, testContract, testSender, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	_, err = cp.VerifyInputProof(otherHandles[0], otherProof, testContract, testSender, r)
	c.Assert(err, qt.IsNil)

	// tampered signature
	tampered := append(InputProof(nil), proof...)
	tampered[len(tampered)-10] ^= 0xff
	_, err = cp.VerifyInputProof(handles[0], tampered, testContract, testSender, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)

	// malformed proofs
	_, err = cp.VerifyInputProof(handles[0], nil, testContract, testSender, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	_, err = cp.VerifyInputProof(handles[0], proof[:len(proof)-1], testContract, testSender, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)

	// signed by another verifier
	rogue := newTestCoprocessor(t)
	rogueHandles, rogueProof, err := rogue.EncryptInput(testContract, testSender, 1)
	c.Assert(err, qt.IsNil)
	_, err = cp.VerifyInputProof(rogueHandles[0], rogueProof, testContract, testSender, r)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
}

func TestInputRange(t *testing.T) {
	c := qt.New(t)
	cp := newTestCoprocessor(t)
	r := Range{Min: 1, Max: 2}

	handles, proof, err := cp.EncryptInput(testContract, testSender, 0, 1, 2, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(handles, qt.HasLen, 4)

	for i, want := range []error{ErrOutOfRange, nil, nil, ErrOutOfRange} {
		_, err := cp.VerifyInputProof(handles[i], proof, testContract, testSender, r)
		if want == nil {
			c.Assert(err, qt.IsNil)
		} else {
			c.Assert(err, qt.ErrorIs, want)
		}
	}

	_, _, err = cp.EncryptInput(testContract, testSender)
	c.Assert(err, qt.IsNotNil)
}
