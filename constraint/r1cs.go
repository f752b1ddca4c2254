// Package constraint implements a sparse Rank-1 Constraint System (R1CS)
// over the scalar field of the primary curve.
//
// An R1CS is three sparse matrices (A, B, C) with the satisfaction
// condition (Aw) ∘ (Bw) = (Cw) for an assignment vector w whose first entry
// is the constant one.
package constraint

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/grapevine-zk/grapefold/internal/parallel"
)

// Term is a single coefficient of a sparse matrix row.
type Term struct {
	Col   uint32
	Coeff fr.Element
}

// SparseMatrix stores one matrix of the system row by row; absent
// coefficients are zero.
type SparseMatrix struct {
	Rows [][]Term
}

// NbRows returns the number of rows of the matrix.
func (m *SparseMatrix) NbRows() int {
	return len(m.Rows)
}

// Mul computes res = M·z. res must have NbRows entries. Rows are processed
// in parallel; the result is deterministic.
func (m *SparseMatrix) Mul(res, z []fr.Element) {
	parallel.Execute(0, len(m.Rows), func(start, end int) {
		var t fr.Element
		for i := start; i < end; i++ {
			res[i].SetZero()
			for _, term := range m.Rows[i] {
				t.Mul(&term.Coeff, &z[term.Col])
				res[i].Add(&res[i], &t)
			}
		}
	})
}

// R1CS is the compiled relation of one computation step. It is immutable
// once built from a circuit artifact.
type R1CS struct {
	A, B, C SparseMatrix

	NbWires  int // includes the constant-one wire at index 0
	NbPubOut int
	NbPubIn  int
	NbPriv   int
}

// NbConstraints returns the number of constraints of the system.
func (cs *R1CS) NbConstraints() int {
	return len(cs.A.Rows)
}

// Validate checks the structural consistency of the system: matching row
// counts, wire counts that add up and column indices in range.
func (cs *R1CS) Validate() error {
	if len(cs.A.Rows) != len(cs.B.Rows) || len(cs.A.Rows) != len(cs.C.Rows) {
		return errors.New("constraint: A, B, C row counts differ")
	}
	if cs.NbWires != 1+cs.NbPubOut+cs.NbPubIn+cs.NbPriv {
		return fmt.Errorf("constraint: wire counts do not add up (%d != 1+%d+%d+%d)",
			cs.NbWires, cs.NbPubOut, cs.NbPubIn, cs.NbPriv)
	}
	for _, m := range []*SparseMatrix{&cs.A, &cs.B, &cs.C} {
		for i := range m.Rows {
			for _, t := range m.Rows[i] {
				if int(t.Col) >= cs.NbWires {
					return fmt.Errorf("constraint: row %d references wire %d out of %d", i, t.Col, cs.NbWires)
				}
			}
		}
	}
	return nil
}

// IsSatisfied checks (Aw) ∘ (Bw) = (Cw) for the full assignment w.
func (cs *R1CS) IsSatisfied(w []fr.Element) error {
	if len(w) != cs.NbWires {
		return fmt.Errorf("constraint: assignment has %d entries, expected %d", len(w), cs.NbWires)
	}
	if !w[0].IsOne() {
		return errors.New("constraint: assignment does not start with the constant one")
	}
	n := cs.NbConstraints()
	az := make([]fr.Element, n)
	bz := make([]fr.Element, n)
	cz := make([]fr.Element, n)
	cs.A.Mul(az, w)
	cs.B.Mul(bz, w)
	cs.C.Mul(cz, w)

	var l fr.Element
	for i := 0; i < n; i++ {
		l.Mul(&az[i], &bz[i])
		if !l.Equal(&cz[i]) {
			return fmt.Errorf("constraint: constraint #%d is not satisfied", i)
		}
	}
	return nil
}
