package ethereum

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712DomainType is the type definition of the domain used by every typed
// data payload of the ballot (name, version, chainId, verifyingContract).
var EIP712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// NewDomain returns an EIP-712 domain bound to chainID and verifyingContract.
func NewDomain(name, version string, chainID uint64, verifyingContract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainId:           math.NewHexOrDecimal256(int64(chainID)),
		VerifyingContract: verifyingContract.Hex(),
	}
}

// AddressValues converts addrs to the representation expected by apitypes
// for an address[] field.
func AddressValues(addrs []common.Address) []interface{} {
	out := make([]interface{}, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
