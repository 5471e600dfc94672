package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/fhe"
	"github.com/vocdoni/fhe-ballot/types"
)

// transition is the outcome of applying one vote: the new slot of the voter
// and the new value of every candidate total.
type transition struct {
	slot   types.VoteSlot
	totals []types.CandidateTotal
}

// applyVote computes the state after voter casts choice. prevSlot is nil if
// the voter never voted. For every candidate c the total becomes
// total + cast(choice == c) - cast(prev == c), so a revote moves exactly one
// unit and a same value revote leaves the totals unchanged. Uninitialized
// totals start from an encrypted zero. The function only depends on its
// inputs and on ops, it never writes state.
func applyVote(ops fhe.Store, prevSlot *types.VoteSlot, totals []types.CandidateTotal,
	voter common.Address, choice fhe.Ciphertext[fhe.Uint32],
) (*transition, error) {
	if choice.IsZero() {
		return nil, fmt.Errorf("uninitialized choice")
	}
	prev, err := previousChoice(ops, prevSlot)
	if err != nil {
		return nil, err
	}
	next := &transition{
		slot: types.VoteSlot{
			Owner:      voter,
			Ciphertext: choice.Handle(),
			HasVoted:   true,
		},
		totals: make([]types.CandidateTotal, len(totals)),
	}
	for i, total := range totals {
		cur, err := fhe.FromHandle[fhe.Uint32](total.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("candidate %d total: %w", total.CandidateID, err)
		}
		if cur.IsZero() {
			if cur, err = ops.TrivialEncrypt(0); err != nil {
				return nil, err
			}
		}
		updated, err := applyDelta(ops, cur, prev, choice, total.CandidateID)
		if err != nil {
			return nil, fmt.Errorf("candidate %d total: %w", total.CandidateID, err)
		}
		next.totals[i] = types.CandidateTotal{
			CandidateID: total.CandidateID,
			Ciphertext:  updated.Handle(),
		}
	}
	return next, nil
}

// previousChoice returns the encrypted previous choice of the voter, or an
// encrypted zero (no candidate) if there is none.
func previousChoice(ops fhe.Store, prevSlot *types.VoteSlot) (fhe.Ciphertext[fhe.Uint32], error) {
	if prevSlot == nil || prevSlot.Ciphertext.IsZero() {
		return ops.TrivialEncrypt(0)
	}
	return fhe.FromHandle[fhe.Uint32](prevSlot.Ciphertext)
}

func applyDelta(ops fhe.Store, total, prev, choice fhe.Ciphertext[fhe.Uint32], id uint32,
) (fhe.Ciphertext[fhe.Uint32], error) {
	isNew, err := ops.EqScalar(choice, id)
	if err != nil {
		return total, err
	}
	isPrev, err := ops.EqScalar(prev, id)
	if err != nil {
		return total, err
	}
	inc, err := ops.Cast(isNew)
	if err != nil {
		return total, err
	}
	dec, err := ops.Cast(isPrev)
	if err != nil {
		return total, err
	}
	if total, err = ops.Add(total, inc); err != nil {
		return total, err
	}
	return ops.Sub(total, dec)
}
