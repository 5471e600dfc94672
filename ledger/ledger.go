// Package ledger implements the confidential tally: one encrypted vote slot
// per voter and one encrypted running total per candidate, updated
// homomorphically on every cast without ever materializing plaintext.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/fhe-ballot/acl"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/log"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
)

var (
	// ErrInvalidInputProof is returned when the input proof does not
	// validate the encrypted choice for the ledger contract and the voter.
	ErrInvalidInputProof = errors.New("invalid input proof")
	// ErrUnknownCandidate is returned for candidate ids outside the
	// candidate set.
	ErrUnknownCandidate = errors.New("unknown candidate")
)

// Config holds the parameters of a ledger.
type Config struct {
	// Contract is the address the ledger acts as. Inputs must be bound to
	// it and it is granted access to every handle the ledger produces.
	Contract common.Address
	// Candidates is the fixed candidate set, ids must be 1..N.
	Candidates []types.Candidate
	// ResultReaders are granted access to the candidate totals on top of
	// the contract.
	ResultReaders []common.Address
}

// Ledger is the tally state machine. It is safe for concurrent use: casts
// are serialized, reads run concurrently.
type Ledger struct {
	mu         sync.RWMutex
	stg        *storage.Storage
	ops        fhe.Store
	acl        *acl.List
	tree       *arbo.Tree
	contract   common.Address
	candidates []types.Candidate
	readers    []common.Address
}

// New opens the ledger stored in stg. Homomorphic operations are delegated
// to ops and access grants are written to list.
func New(stg *storage.Storage, ops fhe.Store, list *acl.List, conf Config) (*Ledger, error) {
	if conf.Contract == (common.Address{}) {
		return nil, fmt.Errorf("ledger contract address is required")
	}
	candidates := conf.Candidates
	if len(candidates) == 0 {
		candidates = types.DefaultCandidates
	}
	for i, c := range candidates {
		if c.ID != uint32(i+1) {
			return nil, fmt.Errorf("candidate ids must be contiguous starting at 1, got %d at position %d", c.ID, i)
		}
	}
	tree, err := openStateTree(stg)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		stg:        stg,
		ops:        ops,
		acl:        list,
		tree:       tree,
		contract:   conf.Contract,
		candidates: append([]types.Candidate(nil), candidates...),
		readers:    append([]common.Address(nil), conf.ResultReaders...),
	}, nil
}

// Contract returns the address of the ledger contract.
func (l *Ledger) Contract() common.Address {
	return l.contract
}

// Candidates returns the candidate set.
func (l *Ledger) Candidates() []types.Candidate {
	return append([]types.Candidate(nil), l.candidates...)
}

func (l *Ledger) candidateRange() fhe.Range {
	return fhe.Range{Min: 1, Max: uint32(len(l.candidates))}
}

// CastVote records the encrypted choice of voter. The proof must bind the
// choice to the ledger contract and to voter, and its value must be a
// candidate id. On success the voter slot and every candidate total are
// updated and the new handles granted, all in one atomic batch. On failure
// nothing changes.
func (l *Ledger) CastVote(voter common.Address, encryptedChoice types.Handle, proof fhe.InputProof) error {
	if voter == (common.Address{}) {
		return fmt.Errorf("%w: empty voter address", ErrInvalidInputProof)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	choice, err := l.ops.VerifyInputProof(encryptedChoice, proof, l.contract, voter, l.candidateRange())
	if err != nil {
		if errors.Is(err, fhe.ErrOutOfRange) {
			return fmt.Errorf("%w: %w", ErrUnknownCandidate, err)
		}
		return fmt.Errorf("%w: %w", ErrInvalidInputProof, err)
	}

	prevSlot, err := l.stg.VoteSlot(voter)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load vote slot: %w", err)
		}
		prevSlot = nil
	}
	totals, err := l.totals()
	if err != nil {
		return err
	}
	next, err := applyVote(l.ops, prevSlot, totals, voter, choice)
	if err != nil {
		return fmt.Errorf("apply vote: %w", err)
	}
	if err := l.commit(next); err != nil {
		return err
	}
	log.Infow("vote cast",
		"voter", voter.Hex(),
		"handle", encryptedChoice.String(),
		"revote", prevSlot != nil)
	return nil
}

// commit writes the transition in a single batch: slot, totals, access
// grants and state tree leaves.
func (l *Ledger) commit(next *transition) error {
	b := l.stg.NewBatch()
	defer b.Discard()

	if err := l.stg.SetVoteSlot(b, &next.slot); err != nil {
		return fmt.Errorf("set vote slot: %w", err)
	}
	if err := l.acl.GrantBatch(b, next.slot.Ciphertext, next.slot.Owner, l.contract); err != nil {
		return err
	}
	treeTx := b.TreeTx()
	if err := setLeaf(l.tree, treeTx, slotStateKey(next.slot.Owner), next.slot.Ciphertext.Bytes()); err != nil {
		return fmt.Errorf("update state tree: %w", err)
	}
	totalReaders := append([]common.Address{l.contract}, l.readers...)
	for i := range next.totals {
		total := &next.totals[i]
		if err := l.stg.SetCandidateTotal(b, total); err != nil {
			return fmt.Errorf("set candidate total: %w", err)
		}
		if err := l.acl.GrantBatch(b, total.Ciphertext, totalReaders...); err != nil {
			return err
		}
		if err := setLeaf(l.tree, treeTx, totalStateKey(total.CandidateID), total.Ciphertext.Bytes()); err != nil {
			return fmt.Errorf("update state tree: %w", err)
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("commit vote: %w", err)
	}
	return nil
}

// totals returns the stored total of every candidate, with the zero handle
// for the ones never initialized.
func (l *Ledger) totals() ([]types.CandidateTotal, error) {
	totals := make([]types.CandidateTotal, len(l.candidates))
	for i, c := range l.candidates {
		totals[i].CandidateID = c.ID
		t, err := l.stg.CandidateTotal(c.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load candidate %d total: %w", c.ID, err)
		}
		totals[i].Ciphertext = t.Ciphertext
	}
	return totals, nil
}

// CandidateTotal returns the encrypted total of candidate id, or the zero
// handle if no vote has been cast yet.
func (l *Ledger) CandidateTotal(id uint32) (types.Handle, error) {
	if id == 0 || int(id) > len(l.candidates) {
		return types.ZeroHandle, fmt.Errorf("%w: %d", ErrUnknownCandidate, id)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, err := l.stg.CandidateTotal(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.ZeroHandle, nil
		}
		return types.ZeroHandle, err
	}
	return t.Ciphertext, nil
}

// Totals returns the encrypted totals of every candidate.
func (l *Ledger) Totals() ([]types.CandidateTotal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals()
}

// VoterChoice returns the encrypted choice of voter, or the zero handle if
// they have not voted.
func (l *Ledger) VoterChoice(voter common.Address) (types.Handle, error) {
	slot, err := l.slot(voter)
	if err != nil || slot == nil {
		return types.ZeroHandle, err
	}
	return slot.Ciphertext, nil
}

// HasVoted reports whether voter has cast a vote.
func (l *Ledger) HasVoted(voter common.Address) (bool, error) {
	slot, err := l.slot(voter)
	if err != nil || slot == nil {
		return false, err
	}
	return slot.HasVoted, nil
}

func (l *Ledger) slot(voter common.Address) (*types.VoteSlot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	slot, err := l.stg.VoteSlot(voter)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// VoterCount returns the number of distinct voters.
func (l *Ledger) VoterCount() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stg.CountVoteSlots()
}

// Root returns the root of the state tree, which commits to every slot and
// total handle.
func (l *Ledger) Root() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Root()
}
