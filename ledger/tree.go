package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
	"github.com/vocdoni/fhe-ballot/storage"
	"github.com/vocdoni/fhe-ballot/types"
	"go.vocdoni.io/dvote/db"
)

var (
	stateKeySlot  = []byte{0x01}
	stateKeyTotal = []byte{0x02}

	treeHashFunc = arbo.HashFunctionSha256
)

// stateKey returns the tree key of an artifact: the first StateKeyLen bytes
// of keccak256(kind || id).
func stateKey(kind, id []byte) []byte {
	return ethereum.HashRaw(append(append([]byte(nil), kind...), id...))[:types.StateKeyLen]
}

func slotStateKey(voter common.Address) []byte {
	return stateKey(stateKeySlot, voter.Bytes())
}

func totalStateKey(id uint32) []byte {
	return stateKey(stateKeyTotal, []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)})
}

// openStateTree opens (or creates) the ledger state tree.
func openStateTree(stg *storage.Storage) (*arbo.Tree, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     stg.TreeDatabase(),
		MaxLevels:    types.StateTreeMaxLevels,
		HashFunction: treeHashFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("open state tree: %w", err)
	}
	return tree, nil
}

// setLeaf adds or updates a leaf of the tree inside wTx.
func setLeaf(tree *arbo.Tree, wTx db.WriteTx, key, value []byte) error {
	_, _, err := tree.Get(key)
	switch {
	case errors.Is(err, arbo.ErrKeyNotFound):
		return tree.AddWithTx(wTx, key, value)
	case err != nil:
		return err
	default:
		return tree.UpdateWithTx(wTx, key, value)
	}
}
