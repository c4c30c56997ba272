package proof

import (
	"math/big"
	"sync"
	"testing"

	"github.com/redpacket/core/internal/ledger"
	"github.com/redpacket/core/pkg/types"
)

// Circuit compilation and setup take a while; share one manager across tests.
var (
	sharedManager *Manager
	compileOnce   sync.Once
	compileErr    error
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	compileOnce.Do(func() {
		sharedManager = NewManager()
		compileErr = sharedManager.CompileFundingCircuit()
	})
	if compileErr != nil {
		t.Fatalf("Failed to compile circuit: %v", compileErr)
	}
	return sharedManager
}

// Test proving and verifying a funding note
func TestProveAndVerify(t *testing.T) {
	m := testManager(t)

	blinder := big.NewInt(123456789)
	proofBytes, tag, nullifier, err := m.ProveFunding(1000, blinder)
	if err != nil {
		t.Fatalf("Failed to prove: %v", err)
	}
	if len(proofBytes) == 0 {
		t.Fatal("Proof should not be empty")
	}

	if err := m.VerifyFunding(proofBytes, tag, nullifier); err != nil {
		t.Errorf("Valid proof should verify: %v", err)
	}
}

// Test that a proof is bound to its public inputs
func TestVerifyRejectsWrongPublics(t *testing.T) {
	m := testManager(t)

	blinder := big.NewInt(123456789)
	proofBytes, tag, nullifier, err := m.ProveFunding(1000, blinder)
	if err != nil {
		t.Fatalf("Failed to prove: %v", err)
	}

	wrongTag := tag
	wrongTag[0] ^= 1
	if err := m.VerifyFunding(proofBytes, wrongTag, nullifier); err != ErrProofVerificationFailed {
		t.Errorf("Tampered tag should fail verification, got %v", err)
	}

	wrongNullifier := nullifier
	wrongNullifier[0] ^= 1
	if err := m.VerifyFunding(proofBytes, tag, wrongNullifier); err != ErrProofVerificationFailed {
		t.Errorf("Tampered nullifier should fail verification, got %v", err)
	}
}

// Test malformed proof encodings
func TestVerifyRejectsMalformed(t *testing.T) {
	m := testManager(t)

	if err := m.VerifyFunding([]byte{1, 2, 3}, types.Hash{1}, types.Hash{2}); err != ErrProofMalformed {
		t.Errorf("Truncated proof should be rejected, got %v", err)
	}
}

// Test the uncompiled manager
func TestUncompiledManager(t *testing.T) {
	m := NewManager()

	if _, _, _, err := m.ProveFunding(1, big.NewInt(1)); err != ErrCircuitNotCompiled {
		t.Errorf("Proving before compile should fail, got %v", err)
	}
	if err := m.VerifyFunding(nil, types.Hash{}, types.Hash{}); err != ErrCircuitNotCompiled {
		t.Errorf("Verifying before compile should fail, got %v", err)
	}
}

// Test the public input helpers match between prover and wallet
func TestPublicInputHelpers(t *testing.T) {
	m := testManager(t)

	blinder := big.NewInt(987654321)
	_, tag, nullifier, err := m.ProveFunding(500, blinder)
	if err != nil {
		t.Fatalf("Failed to prove: %v", err)
	}

	if tag != ComputeAmountTag(500, blinder) {
		t.Error("Prover tag should match the helper")
	}
	if nullifier != ComputeNullifier(blinder) {
		t.Error("Prover nullifier should match the helper")
	}

	// Different blinders never collide on the nullifier
	if ComputeNullifier(big.NewInt(1)) == ComputeNullifier(big.NewInt(2)) {
		t.Error("Distinct blinders should yield distinct nullifiers")
	}
}

// Test the wallet-side note builder against the verifier
func TestBuildFundingNote(t *testing.T) {
	m := testManager(t)

	committer, err := ledger.NewCommitter()
	if err != nil {
		t.Fatalf("Failed to create committer: %v", err)
	}

	note, proofBytes, err := BuildFundingNote(m, committer, 2500)
	if err != nil {
		t.Fatalf("Failed to build note: %v", err)
	}

	if err := m.VerifyFunding(proofBytes, note.AmountTag, note.Nullifier); err != nil {
		t.Errorf("Built note should verify: %v", err)
	}

	var c ledger.Commitment
	if err := c.SetBytes(note.Commitment); err != nil {
		t.Errorf("Note commitment should decode: %v", err)
	}
}
