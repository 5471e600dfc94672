package auth

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/types"
)

const (
	// DomainName is the EIP-712 domain name of decryption authorizations.
	DomainName = "Decryption"
	// DomainVersion is the EIP-712 domain version of decryption
	// authorizations.
	DomainVersion = "1"

	primaryType = "UserDecryptRequestVerification"
)

// Domain identifies the decryption contract the authorizations are signed
// for.
type Domain struct {
	ChainID           uint64
	VerifyingContract common.Address
}

func (d Domain) typed() apitypes.TypedDataDomain {
	return ethereum.NewDomain(DomainName, DomainVersion, d.ChainID, d.VerifyingContract)
}

// TypedData returns the EIP-712 payload the user signs to issue a. It binds
// the ephemeral public key, the contract scope and the validity window.
func TypedData(d Domain, a *types.Authorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": ethereum.EIP712DomainType,
			primaryType: {
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
			},
		},
		PrimaryType: primaryType,
		Domain:      d.typed(),
		Message: apitypes.TypedDataMessage{
			"publicKey":         a.PublicKey.String(),
			"contractAddresses": ethereum.AddressValues(a.ContractAddresses),
			"startTimestamp":    strconv.FormatInt(a.StartTimestamp, 10),
			"durationDays":      strconv.FormatUint(a.DurationDays, 10),
		},
	}
}
