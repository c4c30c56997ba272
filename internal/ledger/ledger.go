// Package ledger defines the operations the red packet registry consumes
// from the confidential-balance ledger: pulling funds in, pushing funds out,
// and granting access to encrypted-value handles.
package ledger

import (
	"context"
	"errors"

	"github.com/redpacket/core/pkg/types"
)

// Ledger operation errors
var (
	ErrProofInvalid  = errors.New("funding proof verification failed")
	ErrProofReplayed = errors.New("funding proof nullifier already spent")
	ErrUnknownHandle = errors.New("unknown encrypted-value handle")
	ErrAccessDenied  = errors.New("identity has no access to handle")
)

// EncryptedAmount is an externally supplied encrypted amount: the Pedersen
// commitment to the value plus the public inputs of its funding proof. The
// value itself stays with the submitter.
type EncryptedAmount struct {
	// Commitment is the uncompressed BN254 encoding of the value commitment
	Commitment []byte

	// AmountTag binds the funding proof to this commitment's opening
	AmountTag types.Hash

	// Nullifier is the single-use identifier preventing proof replay
	Nullifier types.Hash
}

// Ledger is the confidential-balance collaborator. The registry trusts the
// handle returned by Pull as the authoritative encrypted amount moved.
type Ledger interface {
	// Pull verifies the funding proof and moves the committed amount from
	// one identity to another, minting an internal handle whose access list
	// initially contains only the receiving identity.
	Pull(ctx context.Context, from, to types.Address, amount EncryptedAmount, proof []byte) (types.Handle, error)

	// Push moves the amount behind a handle to the recipient's balance.
	// The recipient must have been granted access to the handle.
	Push(ctx context.Context, to types.Address, amount types.Handle) error

	// GrantAccess makes a handle usable by an identity in later operations
	GrantAccess(ctx context.Context, handle types.Handle, id types.Address) error
}

// FundingVerifier checks a funding proof against its public inputs. The
// Groth16 implementation lives in internal/proof.
type FundingVerifier interface {
	VerifyFunding(proof []byte, amountTag, nullifier types.Hash) error
}
