package api

import (
	"net/http"

	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/log"
)

// newVote casts an encrypted vote.
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &Vote{}
	if !decodeBody(w, r, vote) {
		return
	}
	if vote.Handle.IsZero() {
		ErrMalformedBody.With("missing handle").Write(w)
		return
	}
	// the voter is the signer of the vote message
	voter, err := ethereum.AddrFromSignature(VoteMessage(a.ledger.Contract(), vote.Handle), vote.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.ledger.CastVote(voter, vote.Handle, fhe.InputProof(vote.InputProof)); err != nil {
		log.Warnw("vote rejected", "voter", voter.Hex(), "error", err)
		errorFromDomain(err).Write(w)
		return
	}
	root, err := a.ledger.Root()
	if err != nil {
		ErrGenericInternalServerError.Withf("could not get state root: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &VoteResponse{Voter: voter, StateRoot: root})
}
