package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// LedgerEndpoint is the endpoint to get the ledger info (contract,
	// candidates, state root and number of voters)
	LedgerEndpoint = "/ledger"
	// VotesEndpoint is the endpoint for casting a vote
	VotesEndpoint = "/votes"
	// CandidateTotalEndpoint is the endpoint to get the encrypted total of
	// a candidate
	CandidateURLParam      = "candidateId"
	CandidateTotalEndpoint = "/candidates/{" + CandidateURLParam + "}/total"
	// VoterChoiceEndpoint is the endpoint to get the encrypted choice of a
	// voter
	VoterURLParam       = "address"
	VoterChoiceEndpoint = "/voters/{" + VoterURLParam + "}/choice"
	// DecryptEndpoint is the decryption oracle endpoint
	DecryptEndpoint = "/decrypt"
	// InputsEndpoint encrypts inputs on behalf of the sender. It only
	// exists when test inputs are enabled, in a real scenario the inputs
	// are encrypted by the client.
	InputsEndpoint = "/inputs"
)
