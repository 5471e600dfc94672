package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/types"
)

// encryptInputs encrypts values on behalf of the sender.
// POST /inputs
func (a *API) encryptInputs(w http.ResponseWriter, r *http.Request) {
	req := &InputRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Sender == (common.Address{}) || len(req.Values) == 0 {
		ErrMalformedBody.With("sender and values are required").Write(w)
		return
	}
	if req.Contract == (common.Address{}) {
		req.Contract = a.ledger.Contract()
	}
	handles, proof, err := a.inputs.EncryptInput(req.Contract, req.Sender, req.Values...)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &InputResponse{Handles: handles, InputProof: types.HexBytes(proof)})
}
