package pedersen

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	curve2 "github.com/consensys/gnark-crypto/ecc/grumpkin"
	fr2 "github.com/consensys/gnark-crypto/ecc/grumpkin/fr"
)

// SecondaryKey holds the commitment basis on the secondary curve of the
// cycle. Its scalar field is the base field of the primary curve, so
// commitments to primary-curve point coordinates are computed natively.
type SecondaryKey struct {
	Basis []curve2.G1Affine
	H     curve2.G1Affine
}

// NewSecondaryKey derives a commitment key on the secondary curve for
// vectors of up to nbScalars elements.
func NewSecondaryKey(rng io.Reader, nbScalars int) (*SecondaryKey, error) {
	if nbScalars <= 0 {
		return nil, fmt.Errorf("pedersen: invalid key size %d", nbScalars)
	}
	var seed [seedSize]byte
	if _, err := io.ReadFull(rng, seed[:]); err != nil {
		return nil, fmt.Errorf("pedersen: read key seed: %w", err)
	}

	k := &SecondaryKey{Basis: make([]curve2.G1Affine, nbScalars)}
	for i := range k.Basis {
		if err := deriveSecondaryPoint(seed[:], "basis", uint64(i), &k.Basis[i]); err != nil {
			return nil, err
		}
	}
	if err := deriveSecondaryPoint(seed[:], "blinding", 0, &k.H); err != nil {
		return nil, err
	}
	return k, nil
}

// NbScalars returns the maximum vector length the key can commit to.
func (k *SecondaryKey) NbScalars() int {
	return len(k.Basis)
}

// Commit commits to the vector v with the given blinding scalar.
func (k *SecondaryKey) Commit(v []fr2.Element, blinding fr2.Element) (curve2.G1Affine, error) {
	var com curve2.G1Affine
	if len(v) > len(k.Basis) {
		return com, fmt.Errorf("pedersen: vector of %d elements exceeds key size %d", len(v), len(k.Basis))
	}
	if _, err := com.MultiExp(k.Basis[:len(v)], v, ecc.MultiExpConfig{}); err != nil {
		return com, fmt.Errorf("pedersen: %w", err)
	}
	if !blinding.IsZero() {
		var b big.Int
		var hr curve2.G1Affine
		hr.ScalarMultiplication(&k.H, blinding.BigInt(&b))
		com.Add(&com, &hr)
	}
	return com, nil
}

// Open checks that com is a commitment to v under the given blinding scalar.
func (k *SecondaryKey) Open(com *curve2.G1Affine, v []fr2.Element, blinding fr2.Element) error {
	expected, err := k.Commit(v, blinding)
	if err != nil {
		return err
	}
	if !expected.Equal(com) {
		return ErrCommitmentMismatch
	}
	return nil
}

// deriveSecondaryPoint mirrors derivePoint on the secondary curve. The
// hash-to-curve domain tag keeps the two bases separated.
func deriveSecondaryPoint(seed []byte, tag string, index uint64, res *curve2.G1Affine) error {
	msg := make([]byte, 0, len(seed)+len(tag)+8)
	msg = append(msg, seed...)
	msg = append(msg, tag...)
	msg = binary.BigEndian.AppendUint64(msg, index)
	p, err := curve2.HashToG1(msg, []byte("grapefold-pedersen-grumpkin-v1"))
	if err != nil {
		return fmt.Errorf("pedersen: derive basis point: %w", err)
	}
	*res = p
	return nil
}
