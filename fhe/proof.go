package fhe

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/types"
)

const (
	// InputVerificationDomainName is the EIP-712 domain name of input proofs.
	InputVerificationDomainName = "InputVerification"
	// InputVerificationDomainVersion is the EIP-712 domain version of input
	// proofs.
	InputVerificationDomainVersion = "1"

	ciphertextVerificationType = "CiphertextVerification"

	// MaxInputHandles is the maximum number of handles bound by one proof.
	MaxInputHandles = 255
)

// proof layout: numHandles(1) | numSigners(1) | handles(32*numHandles) |
// signatures(65*numSigners)
const proofHeaderLen = 2

// inputTypedData builds the payload signed by the input verifier for a
// set of handles encrypted by user for contract.
func inputTypedData(domain apitypes.TypedDataDomain, handles []types.Handle,
	user, contract common.Address, chainID uint64,
) apitypes.TypedData {
	hs := make([]interface{}, len(handles))
	for i, h := range handles {
		hs[i] = h.String()
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": ethereum.EIP712DomainType,
			ciphertextVerificationType: {
				{Name: "ctHandles", Type: "bytes32[]"},
				{Name: "userAddress", Type: "address"},
				{Name: "contractAddress", Type: "address"},
				{Name: "contractChainId", Type: "uint256"},
			},
		},
		PrimaryType: ciphertextVerificationType,
		Domain:      domain,
		Message: apitypes.TypedDataMessage{
			"ctHandles":       hs,
			"userAddress":     user.Hex(),
			"contractAddress": contract.Hex(),
			"contractChainId": strconv.FormatUint(chainID, 10),
		},
	}
}

func encodeInputProof(handles []types.Handle, signatures ...[]byte) (InputProof, error) {
	if len(handles) == 0 || len(handles) > MaxInputHandles {
		return nil, fmt.Errorf("invalid number of handles %d", len(handles))
	}
	proof := make([]byte, 0, proofHeaderLen+len(handles)*types.HandleSize+len(signatures)*ethereum.SignatureLength)
	proof = append(proof, byte(len(handles)), byte(len(signatures)))
	for _, h := range handles {
		proof = append(proof, h[:]...)
	}
	for _, sig := range signatures {
		if len(sig) != ethereum.SignatureLength {
			return nil, fmt.Errorf("invalid signature length %d", len(sig))
		}
		proof = append(proof, sig...)
	}
	return proof, nil
}

func decodeInputProof(proof InputProof) ([]types.Handle, [][]byte, error) {
	if len(proof) < proofHeaderLen {
		return nil, nil, fmt.Errorf("%w: proof too short", ErrInvalidProof)
	}
	numHandles, numSigners := int(proof[0]), int(proof[1])
	if numHandles == 0 || numSigners == 0 {
		return nil, nil, fmt.Errorf("%w: empty proof", ErrInvalidProof)
	}
	want := proofHeaderLen + numHandles*types.HandleSize + numSigners*ethereum.SignatureLength
	if len(proof) != want {
		return nil, nil, fmt.Errorf("%w: proof length %d, expected %d", ErrInvalidProof, len(proof), want)
	}
	handles := make([]types.Handle, numHandles)
	offset := proofHeaderLen
	for i := range handles {
		copy(handles[i][:], proof[offset:offset+types.HandleSize])
		offset += types.HandleSize
	}
	sigs := make([][]byte, numSigners)
	for i := range sigs {
		sigs[i] = proof[offset : offset+ethereum.SignatureLength]
		offset += ethereum.SignatureLength
	}
	return handles, sigs, nil
}
