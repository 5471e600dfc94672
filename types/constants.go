package types

const (
	// StateTreeMaxLevels is the maximum number of levels in the ledger state
	// merkle tree.
	StateTreeMaxLevels = 160
	// StateKeyLen is the length in bytes of the state tree keys.
	StateKeyLen = StateTreeMaxLevels / 8
)
