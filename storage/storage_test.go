package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/fhe-ballot/types"
	"github.com/vocdoni/fhe-ballot/util"
	"go.vocdoni.io/dvote/db/metadb"
)

func randomHandle(typ uint8) types.Handle {
	return types.NewHandle(util.RandomBytes(types.HandleSize), typ)
}

func TestCiphertextValues(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	h := randomHandle(types.TypeUint32)
	_, err := stg.CiphertextValue(h)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	c.Assert(stg.HasCiphertextValue(h), qt.IsFalse)

	c.Assert(stg.SetCiphertextValue(h, &types.CiphertextValue{Type: types.TypeUint32, Value: 42}), qt.IsNil)
	v, err := stg.CiphertextValue(h)
	c.Assert(err, qt.IsNil)
	c.Assert(v.Value, qt.Equals, uint64(42))
	c.Assert(v.Type, qt.Equals, types.TypeUint32)
	c.Assert(stg.HasCiphertextValue(h), qt.IsTrue)

	c.Assert(stg.SetCiphertextValue(h, nil), qt.IsNotNil)
}

func TestAccessGrants(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	h1 := randomHandle(types.TypeUint32)
	h2 := randomHandle(types.TypeUint32)
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	c.Assert(stg.HasAccess(h1, alice), qt.IsFalse)
	c.Assert(stg.GrantAccess(nil, h1, alice, bob), qt.IsNil)
	c.Assert(stg.HasAccess(h1, alice), qt.IsTrue)
	c.Assert(stg.HasAccess(h1, bob), qt.IsTrue)
	c.Assert(stg.HasAccess(h2, alice), qt.IsFalse)

	// granting twice is harmless
	c.Assert(stg.GrantAccess(nil, h1, alice), qt.IsNil)
	list, err := stg.AccessList(h1)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.DeepEquals, []common.Address{alice, bob})

	list, err = stg.AccessList(h2)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 0)
}

func TestBatchAtomicity(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	voter := common.HexToAddress("0x3333333333333333333333333333333333333333")
	h := randomHandle(types.TypeUint32)
	slot := &types.VoteSlot{Owner: voter, Ciphertext: h, HasVoted: true}
	total := &types.CandidateTotal{CandidateID: 1, Ciphertext: randomHandle(types.TypeUint32)}

	// discarded batch leaves nothing behind
	b := stg.NewBatch()
	c.Assert(stg.SetVoteSlot(b, slot), qt.IsNil)
	c.Assert(stg.SetCandidateTotal(b, total), qt.IsNil)
	c.Assert(stg.GrantAccess(b, h, voter), qt.IsNil)
	b.Discard()

	_, err := stg.VoteSlot(voter)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	_, err = stg.CandidateTotal(1)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	c.Assert(stg.HasAccess(h, voter), qt.IsFalse)

	// nothing is visible before commit
	b = stg.NewBatch()
	c.Assert(stg.SetVoteSlot(b, slot), qt.IsNil)
	c.Assert(stg.SetCandidateTotal(b, total), qt.IsNil)
	c.Assert(stg.GrantAccess(b, h, voter), qt.IsNil)
	_, err = stg.VoteSlot(voter)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	c.Assert(b.Commit(), qt.IsNil)
	b.Discard()
	c.Assert(b.Commit(), qt.IsNotNil)

	gotSlot, err := stg.VoteSlot(voter)
	c.Assert(err, qt.IsNil)
	c.Assert(gotSlot, qt.DeepEquals, slot)
	gotTotal, err := stg.CandidateTotal(1)
	c.Assert(err, qt.IsNil)
	c.Assert(gotTotal, qt.DeepEquals, total)
	c.Assert(stg.HasAccess(h, voter), qt.IsTrue)

	count, err := stg.CountVoteSlots()
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 1)
}

func TestAuthorizationCache(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	user := common.HexToAddress("0x4444444444444444444444444444444444444444")
	contracts := util.SortedAddresses([]common.Address{
		common.HexToAddress("0x6666666666666666666666666666666666666666"),
		common.HexToAddress("0x5555555555555555555555555555555555555555"),
	})
	key := AuthorizationKey(user, contracts)
	c.Assert(AuthorizationKey(user, contracts[:1]), qt.Not(qt.DeepEquals), key)

	_, err := stg.Authorization(key)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	authz := &types.Authorization{
		PublicKey:         util.RandomBytes(33),
		PrivateKey:        util.RandomBytes(32),
		UserAddress:       user,
		ContractAddresses: contracts,
		StartTimestamp:    1700000000,
		DurationDays:      365,
		Signature:         util.RandomBytes(65),
	}
	c.Assert(stg.SetAuthorization(key, authz), qt.IsNil)

	got, err := stg.Authorization(key)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, authz)

	c.Assert(stg.DeleteAuthorization(key), qt.IsNil)
	_, err = stg.Authorization(key)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	c.Assert(stg.DeleteAuthorization(key), qt.IsNil)
}
