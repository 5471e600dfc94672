package util

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
)

func TestSortedAddresses(t *testing.T) {
	c := qt.New(t)
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	z := common.HexToAddress("0xff")

	c.Assert(SortedAddresses([]common.Address{z, a, b, a}), qt.DeepEquals, []common.Address{a, b, z})
	c.Assert(SortedAddresses(nil), qt.HasLen, 0)
}

func TestRandomBytesAndTrimHex(t *testing.T) {
	c := qt.New(t)
	c.Assert(RandomBytes(16), qt.HasLen, 16)
	c.Assert(RandomBytes(16), qt.Not(qt.DeepEquals), RandomBytes(16))
	c.Assert(TrimHex("0xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0XABCD"), qt.Equals, "ABCD")
	c.Assert(TrimHex("abcd"), qt.Equals, "abcd")
}
