package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/fhe-ballot/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

func candidateKey(id uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, id)
}

// VoteSlot returns the slot of voter. It returns ErrNotFound if the voter
// never voted.
func (s *Storage) VoteSlot(voter common.Address) (*types.VoteSlot, error) {
	slot := &types.VoteSlot{}
	if err := s.getArtifact(slotPrefix, voter.Bytes(), slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// SetVoteSlot stores the slot of its owner, overwriting the previous one.
func (s *Storage) SetVoteSlot(b *Batch, slot *types.VoteSlot) error {
	if slot == nil {
		return fmt.Errorf("nil vote slot")
	}
	return s.withBatch(b, func(b *Batch) error {
		return setArtifactTx(b.prefixed(slotPrefix), slot.Owner.Bytes(), slot)
	})
}

// CountVoteSlots returns the number of voters with a slot.
func (s *Storage) CountVoteSlots() (int, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, slotPrefix)
	count := 0
	if err := rd.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, fmt.Errorf("iterate vote slots: %w", err)
	}
	return count, nil
}

// CandidateTotal returns the stored total of a candidate. It returns
// ErrNotFound if no vote has been cast yet.
func (s *Storage) CandidateTotal(id uint32) (*types.CandidateTotal, error) {
	total := &types.CandidateTotal{}
	if err := s.getArtifact(totalPrefix, candidateKey(id), total); err != nil {
		return nil, err
	}
	return total, nil
}

// SetCandidateTotal stores the total of a candidate.
func (s *Storage) SetCandidateTotal(b *Batch, total *types.CandidateTotal) error {
	if total == nil {
		return fmt.Errorf("nil candidate total")
	}
	return s.withBatch(b, func(b *Batch) error {
		return setArtifactTx(b.prefixed(totalPrefix), candidateKey(total.CandidateID), total)
	})
}
