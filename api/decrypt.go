package api

import (
	"net/http"

	"github.com/vocdoni/fhe-ballot/oracle"
)

// userDecrypt serves a decryption request through the oracle.
// POST /decrypt
func (a *API) userDecrypt(w http.ResponseWriter, r *http.Request) {
	req := &oracle.Request{}
	if !decodeBody(w, r, req) {
		return
	}
	resp, err := a.oracle.UserDecrypt(r.Context(), req)
	if err != nil {
		errorFromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, resp)
}
