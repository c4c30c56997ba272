package ledger

import (
	"math/big"
	"testing"
)

// Test commitment creation and opening verification
func TestCommitAndVerify(t *testing.T) {
	committer, err := NewCommitter()
	if err != nil {
		t.Fatalf("Failed to create committer: %v", err)
	}

	c, blinder, err := committer.CommitRandom(1000)
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	if !committer.Verify(c, 1000, blinder) {
		t.Error("Commitment should open to its value and blinder")
	}
	if committer.Verify(c, 1001, blinder) {
		t.Error("Commitment should not open to a different value")
	}
	wrong := new(big.Int).Add(blinder, big.NewInt(1))
	if committer.Verify(c, 1000, wrong) {
		t.Error("Commitment should not open with a different blinder")
	}
}

// Test that a nil blinder is rejected
func TestCommitNilBlinder(t *testing.T) {
	committer, _ := NewCommitter()
	if _, err := committer.Commit(1000, nil); err != ErrInvalidBlinder {
		t.Errorf("Nil blinder should be rejected, got %v", err)
	}
}

// Test the homomorphic addition property
func TestHomomorphicAdd(t *testing.T) {
	committer, _ := NewCommitter()

	r1 := big.NewInt(11111)
	r2 := big.NewInt(22222)
	c1, _ := committer.Commit(100, r1)
	c2, _ := committer.Commit(250, r2)

	sum := c1.Add(c2)
	rSum := new(big.Int).Add(r1, r2)
	if !committer.Verify(sum, 350, rSum) {
		t.Error("Sum of commitments should open to the sum of values")
	}
}

// Test that subtracting a commitment from itself yields the identity
func TestSubIsInverse(t *testing.T) {
	committer, _ := NewCommitter()

	c, _, err := committer.CommitRandom(500)
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	diff := c.Sub(c)
	if !diff.Equal(ZeroCommitment()) {
		t.Error("C - C should be the zero commitment")
	}

	// Adding the identity changes nothing
	if !c.Add(ZeroCommitment()).Equal(c) {
		t.Error("C + 0 should equal C")
	}
}

// Test byte encoding
func TestCommitmentBytes(t *testing.T) {
	committer, _ := NewCommitter()

	c, _, _ := committer.CommitRandom(42)

	var decoded Commitment
	if err := decoded.SetBytes(c.Bytes()); err != nil {
		t.Fatalf("Failed to decode commitment: %v", err)
	}
	if !decoded.Equal(c) {
		t.Error("Decoded commitment should equal the original")
	}

	if err := decoded.SetBytes([]byte{1, 2, 3}); err != ErrInvalidCommitment {
		t.Errorf("Truncated encoding should be rejected, got %v", err)
	}
}
