package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Candidate is one of the fixed options a voter can choose. Ids start at 1,
// 0 is reserved to mean "no choice".
type Candidate struct {
	ID   uint32 `json:"id"   cbor:"0,keyasint"`
	Name string `json:"name" cbor:"1,keyasint,omitempty"`
}

// DefaultCandidates is the candidate set used when none is configured.
var DefaultCandidates = []Candidate{
	{ID: 1, Name: "Lionel Messi"},
	{ID: 2, Name: "Cristiano Ronaldo"},
}

// VoteSlot holds the encrypted choice of a voter. There is at most one slot
// per address, it is created on the first vote and overwritten on revote.
type VoteSlot struct {
	Owner      common.Address `json:"owner"      cbor:"0,keyasint"`
	Ciphertext Handle         `json:"ciphertext" cbor:"1,keyasint"`
	HasVoted   bool           `json:"hasVoted"   cbor:"2,keyasint"`
}

// CandidateTotal holds the encrypted running sum of votes of a candidate.
type CandidateTotal struct {
	CandidateID uint32 `json:"candidateId" cbor:"0,keyasint"`
	Ciphertext  Handle `json:"ciphertext"  cbor:"1,keyasint"`
}

// CiphertextValue is the record kept by the coprocessor behind a handle.
// It never leaves the coprocessor/oracle boundary.
type CiphertextValue struct {
	Type  uint8  `cbor:"0,keyasint"`
	Value uint64 `cbor:"1,keyasint"`
}
