package api

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// ledgerInfo returns the ledger contract, candidates and state.
// GET /ledger
func (a *API) ledgerInfo(w http.ResponseWriter, r *http.Request) {
	root, err := a.ledger.Root()
	if err != nil {
		ErrGenericInternalServerError.Withf("could not get state root: %v", err).Write(w)
		return
	}
	count, err := a.ledger.VoterCount()
	if err != nil {
		ErrGenericInternalServerError.Withf("could not count voters: %v", err).Write(w)
		return
	}
	domain := a.oracle.Domain()
	httpWriteJSON(w, &LedgerInfo{
		Contract:      a.ledger.Contract(),
		ChainID:       domain.ChainID,
		Candidates:    a.ledger.Candidates(),
		StateRoot:     root,
		VoterCount:    count,
		DecryptionApp: domain.VerifyingContract,
	})
}

// candidateTotal returns the encrypted total of a candidate.
// GET /candidates/{candidateId}/total
func (a *API) candidateTotal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, CandidateURLParam), 10, 32)
	if err != nil {
		ErrMalformedParam.Withf("invalid candidate id: %v", err).Write(w)
		return
	}
	h, err := a.ledger.CandidateTotal(uint32(id))
	if err != nil {
		errorFromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, &CandidateTotal{CandidateID: uint32(id), Handle: h})
}

// voterChoice returns the encrypted choice of a voter.
// GET /voters/{address}/choice
func (a *API) voterChoice(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, VoterURLParam)
	if !common.IsHexAddress(param) {
		ErrMalformedParam.Withf("invalid address %q", param).Write(w)
		return
	}
	voter := common.HexToAddress(param)
	h, err := a.ledger.VoterChoice(voter)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	voted, err := a.ledger.HasVoted(voter)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &VoterChoice{Voter: voter, Handle: h, HasVoted: voted})
}
