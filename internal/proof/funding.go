// Package proof implements the Groth16 funding proof for confidential
// transfers, using gnark on BN254.
package proof

import (
	"bytes"
	"errors"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	frmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/redpacket/core/internal/ledger"
	"github.com/redpacket/core/pkg/types"
)

// Circuit errors
var (
	ErrCircuitNotCompiled      = errors.New("circuit not compiled")
	ErrProofGenerationFailed   = errors.New("proof generation failed")
	ErrProofVerificationFailed = errors.New("proof verification failed")
	ErrProofMalformed          = errors.New("malformed proof encoding")
)

// FundingCircuit proves knowledge of the opening (value, blinder) behind a
// funding note. The amount tag binds the proof to the note's opening and the
// nullifier makes the proof single-use; a 64-bit decomposition keeps the
// value a well-formed token amount.
// TODO: bind the Pedersen point in-circuit once an EC gadget is wired in.
type FundingCircuit struct {
	// Public inputs
	AmountTag frontend.Variable `gnark:",public"`
	Nullifier frontend.Variable `gnark:",public"`

	// Private inputs (witness)
	Value   frontend.Variable
	Blinder frontend.Variable
}

// Define implements the circuit constraints
func (c *FundingCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// AmountTag = MiMC(value, blinder)
	h.Write(c.Value, c.Blinder)
	api.AssertIsEqual(c.AmountTag, h.Sum())

	// Nullifier = MiMC(blinder)
	h.Reset()
	h.Write(c.Blinder)
	api.AssertIsEqual(c.Nullifier, h.Sum())

	// Range check: value fits in 64 bits
	api.ToBinary(c.Value, 64)

	return nil
}

// Manager compiles the funding circuit and generates/verifies proofs.
// It satisfies ledger.FundingVerifier.
type Manager struct {
	mu sync.RWMutex

	ccs      constraint.ConstraintSystem
	pk       groth16.ProvingKey
	vk       groth16.VerifyingKey
	compiled bool
}

// NewManager creates a proof manager with no compiled circuit
func NewManager() *Manager {
	return &Manager{}
}

// CompileFundingCircuit compiles the funding circuit and runs the Groth16
// setup. Must be called once before proving or verifying.
func (m *Manager) CompileFundingCircuit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var circuit FundingCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return err
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return err
	}

	m.ccs = ccs
	m.pk = pk
	m.vk = vk
	m.compiled = true

	return nil
}

// ProveFunding generates a funding proof for the given opening. It returns
// the serialized proof together with the public amount tag and nullifier.
func (m *Manager) ProveFunding(value uint64, blinder *big.Int) ([]byte, types.Hash, types.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.compiled {
		return nil, types.EmptyHash, types.EmptyHash, ErrCircuitNotCompiled
	}

	tag := ComputeAmountTag(value, blinder)
	nullifier := ComputeNullifier(blinder)

	assignment := &FundingCircuit{
		AmountTag: new(big.Int).SetBytes(tag[:]),
		Nullifier: new(big.Int).SetBytes(nullifier[:]),
		Value:     value,
		Blinder:   blinder,
	}

	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, types.EmptyHash, types.EmptyHash, err
	}

	p, err := groth16.Prove(m.ccs, m.pk, w)
	if err != nil {
		return nil, types.EmptyHash, types.EmptyHash, ErrProofGenerationFailed
	}

	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, types.EmptyHash, types.EmptyHash, err
	}

	return buf.Bytes(), tag, nullifier, nil
}

// VerifyFunding checks a serialized proof against the note's public inputs
func (m *Manager) VerifyFunding(proofBytes []byte, amountTag, nullifier types.Hash) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.compiled {
		return ErrCircuitNotCompiled
	}

	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return ErrProofMalformed
	}

	// Public inputs come from the note, not the proof blob, so the proof is
	// bound to exactly the tag and nullifier the ledger was handed.
	assignment := &FundingCircuit{
		AmountTag: new(big.Int).SetBytes(amountTag[:]),
		Nullifier: new(big.Int).SetBytes(nullifier[:]),
	}

	pub, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}

	if err := groth16.Verify(p, m.vk, pub); err != nil {
		return ErrProofVerificationFailed
	}

	return nil
}

// ComputeAmountTag computes MiMC(value, blinder) over the BN254 scalar field
func ComputeAmountTag(value uint64, blinder *big.Int) types.Hash {
	var v, b fr.Element
	v.SetUint64(value)
	b.SetBigInt(blinder)

	h := frmimc.NewMiMC()
	vb := v.Bytes()
	bb := b.Bytes()
	h.Write(vb[:])
	h.Write(bb[:])
	return types.HashFromBytes(h.Sum(nil))
}

// ComputeNullifier computes MiMC(blinder) over the BN254 scalar field
func ComputeNullifier(blinder *big.Int) types.Hash {
	var b fr.Element
	b.SetBigInt(blinder)

	h := frmimc.NewMiMC()
	bb := b.Bytes()
	h.Write(bb[:])
	return types.HashFromBytes(h.Sum(nil))
}

// BuildFundingNote commits to a value with a fresh blinder and produces the
// matching funding note and proof. This is the wallet-side entry point for
// packet creation.
func BuildFundingNote(m *Manager, committer *ledger.Committer, value uint64) (ledger.EncryptedAmount, []byte, error) {
	blinder, err := ledger.RandomScalar()
	if err != nil {
		return ledger.EncryptedAmount{}, nil, err
	}

	commitment, err := committer.Commit(value, blinder)
	if err != nil {
		return ledger.EncryptedAmount{}, nil, err
	}

	proofBytes, tag, nullifier, err := m.ProveFunding(value, blinder)
	if err != nil {
		return ledger.EncryptedAmount{}, nil, err
	}

	return ledger.EncryptedAmount{
		Commitment: commitment.Bytes(),
		AmountTag:  tag,
		Nullifier:  nullifier,
	}, proofBytes, nil
}
