package service

import (
	"fmt"

	"github.com/vocdoni/fhe-ballot/acl"
	"github.com/vocdoni/fhe-ballot/auth"
	"github.com/vocdoni/fhe-ballot/config"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/ledger"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/oracle"
	"github.com/vocdoni/fhe-ballot/storage"
)

// Node bundles the components served by the API, all of them sharing the
// same storage.
type Node struct {
	Storage     *storage.Storage
	Coprocessor *fhe.Coprocessor
	ACL         *acl.List
	Ledger      *ledger.Ledger
	Oracle      *oracle.Oracle
	// TestInputs enables the endpoint that encrypts inputs for clients.
	TestInputs bool
}

// NewNode wires the coprocessor, the access list, the ledger and the
// decryption oracle on top of stg following conf.
func NewNode(stg *storage.Storage, conf *config.Config) (*Node, error) {
	verifier, err := conf.Verifier()
	if err != nil {
		return nil, err
	}
	cp := fhe.NewCoprocessor(stg, conf.Ledger.ChainID, conf.InputVerifierAddress(), verifier)
	list := acl.New(stg)
	l, err := ledger.New(stg, cp, list, ledger.Config{
		Contract:      conf.ContractAddress(),
		Candidates:    conf.CandidateSet(),
		ResultReaders: conf.Readers(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	domain := auth.Domain{
		ChainID:           conf.Ledger.ChainID,
		VerifyingContract: conf.DecryptionContract(),
	}
	log.Infow("node ready",
		"contract", l.Contract().Hex(),
		"candidates", len(l.Candidates()),
		"chainId", domain.ChainID,
		"decryptionContract", domain.VerifyingContract.Hex(),
		"inputVerifier", conf.InputVerifierAddress().Hex(),
		"proofSigner", cp.VerifierAddress().Hex())
	return &Node{
		Storage:     stg,
		Coprocessor: cp,
		ACL:         list,
		Ledger:      l,
		Oracle:      oracle.New(domain, list, cp),
		TestInputs:  conf.API.EnableTestInputs,
	}, nil
}
