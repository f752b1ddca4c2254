// Package circom loads compiled Circom circuit artifacts and bridges their
// witness-generation oracles to the folding scheme.
//
// The package owns no file paths; artifacts are read from io.Reader so
// callers decide where the bytes come from.
package circom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/grapevine-zk/grapefold/constraint"
	"github.com/grapevine-zk/grapefold/logger"
)

// ErrCircuitLoad is returned when a circuit artifact is malformed or
// disagrees with what the folding scheme expects.
var ErrCircuitLoad = errors.New("circom: invalid circuit artifact")

var r1csFileMagic = [4]byte{0x72, 0x31, 0x63, 0x73} // "r1cs"

const (
	sectionHeader      = 1
	sectionConstraints = 2
	sectionWire2Label  = 3
)

type artifactHeader struct {
	fieldSize     uint32
	nbWires       uint32
	nbPubOut      uint32
	nbPubIn       uint32
	nbPrvIn       uint32
	nbConstraints uint32
}

// ParseR1CS reads a circom .r1cs binary artifact and returns the constraint
// system it declares. The artifact's prime must be the scalar field of the
// primary curve.
func ParseR1CS(r io.Reader) (*constraint.R1CS, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	if magic != r1csFileMagic {
		return nil, fmt.Errorf("%w: bad magic bytes", ErrCircuitLoad)
	}
	var version, nbSections uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCircuitLoad, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &nbSections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}

	var hdr *artifactHeader
	var cs *constraint.R1CS

	for s := uint32(0); s < nbSections; s++ {
		var sectionType uint32
		var sectionSize uint64
		if err := binary.Read(r, binary.LittleEndian, &sectionType); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &sectionSize); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
		}
		body := io.LimitReader(r, int64(sectionSize))

		switch sectionType {
		case sectionHeader:
			h, err := parseHeader(body)
			if err != nil {
				return nil, err
			}
			hdr = h
		case sectionConstraints:
			if hdr == nil {
				return nil, fmt.Errorf("%w: constraints section before header", ErrCircuitLoad)
			}
			parsed, err := parseConstraints(body, sectionSize, hdr)
			if err != nil {
				return nil, err
			}
			cs = parsed
		default:
			// wire2label and custom sections carry no relation data
			if _, err := io.Copy(io.Discard, body); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
			}
		}
	}

	if hdr == nil || cs == nil {
		return nil, fmt.Errorf("%w: missing header or constraints section", ErrCircuitLoad)
	}
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	return cs, nil
}

func parseHeader(r io.Reader) (*artifactHeader, error) {
	var h artifactHeader
	if err := binary.Read(r, binary.LittleEndian, &h.fieldSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	if h.fieldSize != fr.Bytes {
		return nil, fmt.Errorf("%w: field size %d, expected %d", ErrCircuitLoad, h.fieldSize, fr.Bytes)
	}
	prime := make([]byte, h.fieldSize)
	if _, err := io.ReadFull(r, prime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	var p big.Int
	p.SetBytes(reverseBytes(prime))
	if p.Cmp(fr.Modulus()) != 0 {
		return nil, fmt.Errorf("%w: artifact prime does not match the primary scalar field", ErrCircuitLoad)
	}
	for _, dst := range []*uint32{&h.nbWires, &h.nbPubOut, &h.nbPubIn, &h.nbPrvIn} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
		}
	}
	var nbLabels uint64
	if err := binary.Read(r, binary.LittleEndian, &nbLabels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.nbConstraints); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircuitLoad, err)
	}
	if h.nbWires == 0 || 1+h.nbPubOut+h.nbPubIn > h.nbWires {
		return nil, fmt.Errorf("%w: inconsistent wire counts", ErrCircuitLoad)
	}
	return &h, nil
}

func parseConstraints(r io.Reader, size uint64, hdr *artifactHeader) (*constraint.R1CS, error) {
	// the declared counts are untrusted; a constraint occupies at least
	// three 4-byte term counts and a term 4+fieldSize bytes, so anything
	// the section cannot physically hold is rejected before allocating
	if uint64(hdr.nbConstraints) > size/12 {
		return nil, fmt.Errorf("%w: %d constraints exceed the section size", ErrCircuitLoad, hdr.nbConstraints)
	}
	termSize := uint64(4 + hdr.fieldSize)

	cs := &constraint.R1CS{
		NbWires:  int(hdr.nbWires),
		NbPubOut: int(hdr.nbPubOut),
		NbPubIn:  int(hdr.nbPubIn),
	}
	cs.NbPriv = cs.NbWires - 1 - cs.NbPubOut - cs.NbPubIn

	seen := bitset.New(uint(hdr.nbWires))
	seen.Set(0)

	for _, m := range []*constraint.SparseMatrix{&cs.A, &cs.B, &cs.C} {
		m.Rows = make([][]constraint.Term, hdr.nbConstraints)
	}
	coeff := make([]byte, hdr.fieldSize)
	for i := uint32(0); i < hdr.nbConstraints; i++ {
		for _, m := range []*constraint.SparseMatrix{&cs.A, &cs.B, &cs.C} {
			var nbTerms uint32
			if err := binary.Read(r, binary.LittleEndian, &nbTerms); err != nil {
				return nil, fmt.Errorf("%w: constraint %d: %v", ErrCircuitLoad, i, err)
			}
			if uint64(nbTerms) > size/termSize {
				return nil, fmt.Errorf("%w: constraint %d declares %d terms, exceeding the section size", ErrCircuitLoad, i, nbTerms)
			}
			row := make([]constraint.Term, 0, nbTerms)
			for t := uint32(0); t < nbTerms; t++ {
				var wireID uint32
				if err := binary.Read(r, binary.LittleEndian, &wireID); err != nil {
					return nil, fmt.Errorf("%w: constraint %d: %v", ErrCircuitLoad, i, err)
				}
				if wireID >= hdr.nbWires {
					return nil, fmt.Errorf("%w: constraint %d references wire %d out of %d", ErrCircuitLoad, i, wireID, hdr.nbWires)
				}
				if _, err := io.ReadFull(r, coeff); err != nil {
					return nil, fmt.Errorf("%w: constraint %d: %v", ErrCircuitLoad, i, err)
				}
				var c fr.Element
				c.SetBytes(reverseBytes(coeff))
				seen.Set(uint(wireID))
				row = append(row, constraint.Term{Col: wireID, Coeff: c})
			}
			m.Rows[i] = row
		}
	}

	if unconstrained := countUnconstrainedPublic(seen, hdr); unconstrained > 0 {
		log := logger.Logger().With().Str("component", "circom").Logger()
		log.Warn().Int("nbWires", unconstrained).Msg("public wires appear in no constraint")
	}
	return cs, nil
}

func countUnconstrainedPublic(seen *bitset.BitSet, hdr *artifactHeader) int {
	n := 0
	for w := uint(1); w <= uint(hdr.nbPubOut+hdr.nbPubIn); w++ {
		if !seen.Test(w) {
			n++
		}
	}
	return n
}

// reverseBytes converts between the artifact's little-endian field encoding
// and the big-endian layout gnark-crypto expects.
func reverseBytes(in []byte) []byte {
	out := make([]byte, len(in))
	for i := range in {
		out[len(in)-1-i] = in[i]
	}
	return out
}
