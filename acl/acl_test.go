package acl

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
	"github.com/vocdoni/fhe-ballot/util"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestGrant(t *testing.T) {
	c := qt.New(t)
	l := New(storage.New(metadb.NewTest(t)))

	h := types.NewHandle(util.RandomBytes(32), types.TypeUint32)
	c.Assert(l.IsPermitted(h, alice), qt.IsFalse)

	c.Assert(l.Grant(h, alice), qt.IsNil)
	c.Assert(l.IsPermitted(h, alice), qt.IsTrue)
	c.Assert(l.IsPermitted(h, bob), qt.IsFalse)

	c.Assert(l.Grant(h, bob), qt.IsNil)
	permitted, err := l.Permitted(h)
	c.Assert(err, qt.IsNil)
	c.Assert(permitted, qt.DeepEquals, []common.Address{alice, bob})

	c.Assert(l.Grant(types.ZeroHandle, alice), qt.ErrorIs, ErrUninitializedHandle)
	c.Assert(l.IsPermitted(types.ZeroHandle, alice), qt.IsFalse)
	c.Assert(l.Grant(h, common.Address{}), qt.IsNotNil)
}

func TestGrantBatch(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	l := New(stg)

	h := types.NewHandle(util.RandomBytes(32), types.TypeUint32)
	b := stg.NewBatch()
	c.Assert(l.GrantBatch(b, h, alice, bob), qt.IsNil)
	c.Assert(l.IsPermitted(h, alice), qt.IsFalse)
	c.Assert(b.Commit(), qt.IsNil)
	c.Assert(l.IsPermitted(h, alice), qt.IsTrue)
	c.Assert(l.IsPermitted(h, bob), qt.IsTrue)

	// discarded grants are never visible
	h2 := types.NewHandle(util.RandomBytes(32), types.TypeUint32)
	b = stg.NewBatch()
	c.Assert(l.GrantBatch(b, h2, alice), qt.IsNil)
	b.Discard()
	c.Assert(l.IsPermitted(h2, alice), qt.IsFalse)
}
