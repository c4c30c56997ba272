// Package ledger implements the confidential-balance ledger the red packet
// registry delegates all value movement to. Balances and transferred amounts
// are Pedersen commitments; plaintext amounts never appear in ledger state.
package ledger

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"
)

// Commitment errors
var (
	ErrInvalidBlinder    = errors.New("invalid blinder")
	ErrInvalidCommitment = errors.New("invalid commitment encoding")
)

// pedersenDomainTag seeds the derivation of the blinding generator H.
// Note: H = SHA3(tag)*G makes the discrete log of H public, which breaks
// the binding property for an adversary who uses it. A hash-to-curve
// derivation with no known scalar should replace this before production use.
const pedersenDomainTag = "REDPACKET_PEDERSEN_H_V1"

// Commitment is a Pedersen commitment: C = v*G + r*H
type Commitment struct {
	Point bn254.G1Affine
}

// Add returns the homomorphic sum of two commitments:
// C1 + C2 = (v1 + v2)*G + (r1 + r2)*H
func (c *Commitment) Add(other *Commitment) *Commitment {
	var result bn254.G1Affine
	result.Add(&c.Point, &other.Point)
	return &Commitment{Point: result}
}

// Sub returns the homomorphic difference of two commitments
func (c *Commitment) Sub(other *Commitment) *Commitment {
	var negOther bn254.G1Affine
	negOther.Neg(&other.Point)

	var result bn254.G1Affine
	result.Add(&c.Point, &negOther)

	return &Commitment{Point: result}
}

// Equal reports whether two commitments are the same curve point
func (c *Commitment) Equal(other *Commitment) bool {
	return c.Point.Equal(&other.Point)
}

// Bytes returns the uncompressed byte representation of the commitment
func (c *Commitment) Bytes() []byte {
	return c.Point.Marshal()
}

// SetBytes reconstructs a commitment from its byte representation
func (c *Commitment) SetBytes(data []byte) error {
	if err := c.Point.Unmarshal(data); err != nil {
		return ErrInvalidCommitment
	}
	return nil
}

// ZeroCommitment returns the commitment to zero with a zero blinder
// (the point at infinity), the identity for homomorphic addition.
func ZeroCommitment() *Commitment {
	var c Commitment
	c.Point.X.SetZero()
	c.Point.Y.SetZero()
	return &c
}

// Committer produces and verifies Pedersen commitments over BN254
type Committer struct {
	g bn254.G1Affine
	h bn254.G1Affine
}

// NewCommitter creates a committer with the standard BN254 generator as G
// and a domain-separated derived point as H
func NewCommitter() (*Committer, error) {
	_, _, g1Gen, _ := bn254.Generators()

	seed := sha3.Sum256([]byte(pedersenDomainTag))
	var h bn254.G1Affine
	h.ScalarMultiplication(&g1Gen, new(big.Int).SetBytes(seed[:]))

	return &Committer{g: g1Gen, h: h}, nil
}

// Commit computes C = value*G + blinder*H
func (pc *Committer) Commit(value uint64, blinder *big.Int) (*Commitment, error) {
	if blinder == nil {
		return nil, ErrInvalidBlinder
	}

	var valueG bn254.G1Affine
	valueG.ScalarMultiplication(&pc.g, new(big.Int).SetUint64(value))

	var blinderH bn254.G1Affine
	blinderH.ScalarMultiplication(&pc.h, blinder)

	var commitment bn254.G1Affine
	commitment.Add(&valueG, &blinderH)

	return &Commitment{Point: commitment}, nil
}

// CommitRandom commits to a value with a freshly sampled blinder
func (pc *Committer) CommitRandom(value uint64) (*Commitment, *big.Int, error) {
	blinder, err := RandomScalar()
	if err != nil {
		return nil, nil, err
	}

	commitment, err := pc.Commit(value, blinder)
	if err != nil {
		return nil, nil, err
	}

	return commitment, blinder, nil
}

// Verify checks if a commitment opens to the given value and blinder
func (pc *Committer) Verify(c *Commitment, value uint64, blinder *big.Int) bool {
	expected, err := pc.Commit(value, blinder)
	if err != nil {
		return false
	}
	return c.Equal(expected)
}

// RandomScalar samples a random scalar in the BN254 scalar field
func RandomScalar() (*big.Int, error) {
	var scalar fr.Element
	if _, err := scalar.SetRandom(); err != nil {
		return nil, err
	}
	return scalar.BigInt(new(big.Int)), nil
}
