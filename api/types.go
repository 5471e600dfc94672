package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/types"
)

// LedgerInfo is the response to a ledger info request. It carries what a
// client needs to encrypt inputs and to sign decryption authorizations.
type LedgerInfo struct {
	Contract      common.Address    `json:"contract"`
	ChainID       uint64            `json:"chainId"`
	Candidates    []types.Candidate `json:"candidates"`
	StateRoot     types.HexBytes    `json:"stateRoot"`
	VoterCount    int               `json:"voterCount"`
	DecryptionApp common.Address    `json:"decryptionContract"`
}

// Vote is the request to cast a vote. The voter is the address that signed
// VoteMessage(contract, handle) following EIP-191.
type Vote struct {
	Handle     types.Handle   `json:"handle"`
	InputProof types.HexBytes `json:"inputProof"`
	Signature  types.HexBytes `json:"signature"`
}

// VoteResponse is the response to a successful vote.
type VoteResponse struct {
	Voter     common.Address `json:"voter"`
	StateRoot types.HexBytes `json:"stateRoot"`
}

// CandidateTotal is the response to a candidate total request. The handle
// is the zero handle until the first vote is cast.
type CandidateTotal struct {
	CandidateID uint32       `json:"candidateId"`
	Handle      types.Handle `json:"handle"`
}

// VoterChoice is the response to a voter choice request.
type VoterChoice struct {
	Voter    common.Address `json:"voter"`
	Handle   types.Handle   `json:"handle"`
	HasVoted bool           `json:"hasVoted"`
}

// InputRequest asks the server to encrypt values on behalf of sender. If
// contract is empty the ledger contract is used.
type InputRequest struct {
	Contract common.Address `json:"contract"`
	Sender   common.Address `json:"sender"`
	Values   []uint32       `json:"values"`
}

// InputResponse carries the encrypted handles and the proof binding them.
type InputResponse struct {
	Handles    []types.Handle `json:"handles"`
	InputProof types.HexBytes `json:"inputProof"`
}

// VoteMessage returns the message a voter signs to cast handle on contract.
func VoteMessage(contract common.Address, handle types.Handle) []byte {
	msg := make([]byte, 0, common.AddressLength+types.HandleSize)
	msg = append(msg, contract.Bytes()...)
	return append(msg, handle[:]...)
}
