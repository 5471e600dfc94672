package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/api"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/oracle"
	"github.com/vocdoni/fhe-ballot/types"
)

// apiError is the error body returned by the API.
type apiError struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

// call performs a request and decodes a 200 response into out. Any other
// status is turned into an error wrapping the matching domain error, so
// callers can use errors.Is against the ledger, auth and oracle errors.
func (c *HTTPclient) call(method string, body, out any, urlPath ...string) error {
	data, status, err := c.Request(method, body, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		e := &apiError{}
		if err := json.Unmarshal(data, e); err != nil || e.Code == 0 {
			return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, bytes.TrimSpace(data))
		}
		if sentinel := api.SentinelForCode(e.Code); sentinel != nil {
			return fmt.Errorf("%w: %s (code %d)", sentinel, e.Err, e.Code)
		}
		return fmt.Errorf("%s: %s (code %d)", errCodeNot200, e.Err, e.Code)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

// Ledger returns the ledger info.
func (c *HTTPclient) Ledger() (*api.LedgerInfo, error) {
	info := &api.LedgerInfo{}
	if err := c.call(http.MethodGet, nil, info, api.LedgerEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// CastVote signs the vote message for handle with voter and submits it to
// the ledger of contract.
func (c *HTTPclient) CastVote(voter *ethereum.SignKeys, contract common.Address,
	handle types.Handle, proof fhe.InputProof,
) (*api.VoteResponse, error) {
	sig, err := voter.SignEthereum(api.VoteMessage(contract, handle))
	if err != nil {
		return nil, fmt.Errorf("could not sign vote: %w", err)
	}
	resp := &api.VoteResponse{}
	if err := c.call(http.MethodPost, &api.Vote{
		Handle:     handle,
		InputProof: types.HexBytes(proof),
		Signature:  sig,
	}, resp, api.VotesEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// CandidateTotal returns the encrypted total of candidate id.
func (c *HTTPclient) CandidateTotal(id uint32) (types.Handle, error) {
	resp := &api.CandidateTotal{}
	if err := c.call(http.MethodGet, nil, resp, "candidates", strconv.FormatUint(uint64(id), 10), "total"); err != nil {
		return types.ZeroHandle, err
	}
	return resp.Handle, nil
}

// VoterChoice returns the encrypted choice of voter.
func (c *HTTPclient) VoterChoice(voter common.Address) (*api.VoterChoice, error) {
	resp := &api.VoterChoice{}
	if err := c.call(http.MethodGet, nil, resp, "voters", voter.Hex(), "choice"); err != nil {
		return nil, err
	}
	return resp, nil
}

// Decrypt sends a decryption request. The private key of authz is never
// sent, it is used to open the sealed values of the response.
func (c *HTTPclient) Decrypt(authz *types.Authorization, pairs ...oracle.HandleContractPair) (map[types.Handle]uint64, error) {
	resp := &oracle.Response{}
	if err := c.call(http.MethodPost, &oracle.Request{
		Handles:       pairs,
		Authorization: authz.Public(),
	}, resp, api.DecryptEndpoint); err != nil {
		return nil, err
	}
	return oracle.OpenAll(authz, resp)
}

// EncryptInputs asks a server with test inputs enabled to encrypt values
// for sender. A zero contract selects the ledger contract.
func (c *HTTPclient) EncryptInputs(contract, sender common.Address, values ...uint32) ([]types.Handle, fhe.InputProof, error) {
	resp := &api.InputResponse{}
	if err := c.call(http.MethodPost, &api.InputRequest{
		Contract: contract,
		Sender:   sender,
		Values:   values,
	}, resp, api.InputsEndpoint); err != nil {
		return nil, nil, err
	}
	return resp.Handles, fhe.InputProof(resp.InputProof), nil
}
