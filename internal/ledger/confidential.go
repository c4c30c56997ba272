// Package ledger implements the in-process confidential ledger.
package ledger

import (
	"context"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/redpacket/core/pkg/common"
	"github.com/redpacket/core/pkg/types"
)

// handleEntry is the ledger-side record behind an encrypted-value handle
type handleEntry struct {
	// commitment to the amount the handle refers to
	commitment *Commitment

	// holder is the identity the amount was pulled into; pushes debit it
	holder types.Address

	// acl lists identities allowed to use the handle
	acl map[types.Address]struct{}
}

// ConfidentialLedger holds encrypted balances per address and implements
// the Ledger interface. All arithmetic is homomorphic on commitments; the
// ledger never learns plaintext amounts. Balance sufficiency is attested by
// the funding proof, not inspected here.
type ConfidentialLedger struct {
	mu sync.RWMutex

	committer  *Committer
	verifier   FundingVerifier
	nullifiers *NullifierSet

	// Encrypted balance per identity
	balances map[types.Address]*Commitment

	// Handle table, exclusively owned by the ledger
	handles map[types.Handle]*handleEntry

	// Handle id derivation counter
	seq uint64
}

// NewConfidentialLedger creates a confidential ledger. The verifier checks
// funding proofs on Pull; the nullifier set rejects proof replays.
func NewConfidentialLedger(verifier FundingVerifier, nullifiers *NullifierSet) (*ConfidentialLedger, error) {
	committer, err := NewCommitter()
	if err != nil {
		return nil, err
	}

	if nullifiers == nil {
		nullifiers = NewNullifierSet(NewInMemoryNullifierStore(), nil)
	}

	return &ConfidentialLedger{
		committer:  committer,
		verifier:   verifier,
		nullifiers: nullifiers,
		balances:   make(map[types.Address]*Commitment),
		handles:    make(map[types.Handle]*handleEntry),
	}, nil
}

// Committer exposes the ledger's Pedersen committer so wallets and tests can
// build funding notes against the same generators
func (l *ConfidentialLedger) Committer() *Committer {
	return l.committer
}

// Deposit credits an identity with an externally committed amount. This is
// the bridge entry point; it bypasses proof checks and exists for genesis
// funding and tests.
func (l *ConfidentialLedger) Deposit(to types.Address, commitment []byte) error {
	var c Commitment
	if err := c.SetBytes(commitment); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, &c)
	return nil
}

// Pull verifies the funding proof, rejects replays, and moves the committed
// amount from one identity to another. The returned handle is the
// authoritative reference to the moved amount; its access list initially
// contains only the receiving identity.
func (l *ConfidentialLedger) Pull(ctx context.Context, from, to types.Address, amount EncryptedAmount, proof []byte) (types.Handle, error) {
	var c Commitment
	if err := c.SetBytes(amount.Commitment); err != nil {
		return types.EmptyHandle, err
	}

	if l.verifier != nil {
		if err := l.verifier.VerifyFunding(proof, amount.AmountTag, amount.Nullifier); err != nil {
			return types.EmptyHandle, ErrProofInvalid
		}
	}

	if err := l.nullifiers.MarkSpent(ctx, amount.Nullifier, common.Now()); err != nil {
		return types.EmptyHandle, ErrProofReplayed
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.debit(from, &c)
	l.credit(to, &c)

	handle := l.newHandleID(amount)
	l.handles[handle] = &handleEntry{
		commitment: &c,
		holder:     to,
		acl:        map[types.Address]struct{}{to: {}},
	}

	return handle, nil
}

// Push moves the amount behind a handle from its holder to the recipient.
// The recipient must hold access to the handle. The handle stays valid
// afterwards; pushing does not consume it.
func (l *ConfidentialLedger) Push(ctx context.Context, to types.Address, handle types.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.handles[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if _, ok := entry.acl[to]; !ok {
		return ErrAccessDenied
	}

	l.debit(entry.holder, entry.commitment)
	l.credit(to, entry.commitment)
	return nil
}

// GrantAccess adds an identity to a handle's access list
func (l *ConfidentialLedger) GrantAccess(ctx context.Context, handle types.Handle, id types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.handles[handle]
	if !ok {
		return ErrUnknownHandle
	}

	entry.acl[id] = struct{}{}
	return nil
}

// HasAccess reports whether an identity may use a handle
func (l *ConfidentialLedger) HasAccess(handle types.Handle, id types.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.handles[handle]
	if !ok {
		return false
	}
	_, ok = entry.acl[id]
	return ok
}

// BalanceCommitment returns the encrypted balance of an identity. The second
// return value is false if the identity never held funds.
func (l *ConfidentialLedger) BalanceCommitment(addr types.Address) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	balance, ok := l.balances[addr]
	if !ok {
		return nil, false
	}
	return balance.Bytes(), true
}

// HandleCommitment resolves a handle to its commitment bytes, gated on the
// caller identity holding access
func (l *ConfidentialLedger) HandleCommitment(handle types.Handle, caller types.Address) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.handles[handle]
	if !ok {
		return nil, ErrUnknownHandle
	}
	if _, ok := entry.acl[caller]; !ok {
		return nil, ErrAccessDenied
	}
	return entry.commitment.Bytes(), nil
}

// credit adds a commitment to an identity's balance. Caller holds the lock.
func (l *ConfidentialLedger) credit(to types.Address, c *Commitment) {
	balance, ok := l.balances[to]
	if !ok {
		balance = ZeroCommitment()
	}
	l.balances[to] = balance.Add(c)
}

// debit subtracts a commitment from an identity's balance. Caller holds the lock.
func (l *ConfidentialLedger) debit(from types.Address, c *Commitment) {
	balance, ok := l.balances[from]
	if !ok {
		balance = ZeroCommitment()
	}
	l.balances[from] = balance.Sub(c)
}

// newHandleID derives a fresh handle id from the note and a sequence counter.
// Caller holds the lock.
func (l *ConfidentialLedger) newHandleID(amount EncryptedAmount) types.Handle {
	l.seq++
	digest := sha3.New256()
	digest.Write(amount.Commitment)
	digest.Write(amount.Nullifier[:])
	digest.Write(common.Uint64ToBytes(l.seq))
	return types.HandleFromBytes(digest.Sum(nil))
}
