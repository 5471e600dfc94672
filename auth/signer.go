package auth

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vocdoni/fhe-ballot/crypto/ethereum"
)

// Signer is the wallet of the user. SignTypedData may block until the user
// answers and must return early when ctx is done.
type Signer interface {
	Address() common.Address
	SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error)
}

var _ Signer = (*ethereum.SignKeys)(nil)

// PromptFunc asks the user to approve a signature request. It returns false
// if the user declines.
type PromptFunc func(ctx context.Context, td apitypes.TypedData) (bool, error)

// PromptSigner wraps a Signer with an approval step, modelling the wallet
// confirmation dialog.
type PromptSigner struct {
	Signer
	prompt PromptFunc
}

// NewPromptSigner returns a Signer that calls prompt before every signature.
func NewPromptSigner(s Signer, prompt PromptFunc) *PromptSigner {
	return &PromptSigner{Signer: s, prompt: prompt}
}

// SignTypedData implements Signer.
func (p *PromptSigner) SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error) {
	ok, err := p.prompt(ctx, td)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: declined by %s", ErrUserRejectedSignature, p.Address().Hex())
	}
	return p.Signer.SignTypedData(ctx, td)
}
