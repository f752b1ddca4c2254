package constraint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"github.com/grapevine-zk/grapefold/internal/ioutils"
)

var r1csMagic = [4]byte{'g', 'f', 'r', '1'}

// WriteTo serializes the system to w: a binary header with the field
// modulus and wire counts, then one block per matrix. The three matrix
// blocks are produced in parallel; column indices are integer-compressed,
// coefficients are written raw.
func (cs *R1CS) WriteTo(w io.Writer) (int64, error) {
	var blocks [3][]byte
	var g errgroup.Group
	for i, m := range []*SparseMatrix{&cs.A, &cs.B, &cs.C} {
		g.Go(func() error {
			var err error
			blocks[i], err = m.toBytes()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	buf.Write(r1csMagic[:])
	mod := fr.Modulus().Bytes()
	buf.WriteByte(byte(len(mod)))
	buf.Write(mod)
	for _, v := range []int{cs.NbWires, cs.NbPubOut, cs.NbPubIn, cs.NbPriv} {
		_ = ioutils.WriteUint64(&buf, uint64(v))
	}
	for _, b := range blocks {
		_ = ioutils.WriteUint64(&buf, uint64(len(b)))
		buf.Write(b)
	}
	return buf.WriteTo(w)
}

// ReadFrom deserializes the system from r. The receiver is only mutated on
// success.
func (cs *R1CS) ReadFrom(r io.Reader) (int64, error) {
	var n int64
	var magic [4]byte
	read, err := io.ReadFull(r, magic[:])
	n += int64(read)
	if err != nil {
		return n, err
	}
	if magic != r1csMagic {
		return n, errors.New("constraint: invalid magic bytes")
	}
	var modLen [1]byte
	read, err = io.ReadFull(r, modLen[:])
	n += int64(read)
	if err != nil {
		return n, err
	}
	mod := make([]byte, modLen[0])
	read, err = io.ReadFull(r, mod)
	n += int64(read)
	if err != nil {
		return n, err
	}
	if !bytes.Equal(mod, fr.Modulus().Bytes()) {
		return n, errors.New("constraint: field modulus mismatch")
	}

	var counts [4]uint64
	for i := range counts {
		counts[i], err = ioutils.ReadUint64(r)
		n += 8
		if err != nil {
			return n, err
		}
	}

	var res R1CS
	res.NbWires = int(counts[0])
	res.NbPubOut = int(counts[1])
	res.NbPubIn = int(counts[2])
	res.NbPriv = int(counts[3])

	blocks := make([][]byte, 3)
	for i := range blocks {
		var size uint64
		size, err = ioutils.ReadUint64(r)
		n += 8
		if err != nil {
			return n, err
		}
		if size > math.MaxInt64 {
			return n, errors.New("constraint: corrupted block size")
		}
		// grow with the bytes actually present so a lying size field
		// fails with EOF instead of exhausting memory up front
		var block bytes.Buffer
		read64, err := io.CopyN(&block, r, int64(size))
		n += read64
		if err != nil {
			return n, err
		}
		blocks[i] = block.Bytes()
	}

	var g errgroup.Group
	for i, m := range []*SparseMatrix{&res.A, &res.B, &res.C} {
		g.Go(func() error {
			return m.fromBytes(blocks[i])
		})
	}
	if err := g.Wait(); err != nil {
		return n, err
	}
	if err := res.Validate(); err != nil {
		return n, err
	}
	*cs = res
	return n, nil
}

func (m *SparseMatrix) toBytes() ([]byte, error) {
	nbTerms := 0
	for i := range m.Rows {
		nbTerms += len(m.Rows[i])
	}
	rowPtr := make([]uint32, len(m.Rows)+1)
	cols := make([]uint32, 0, nbTerms)
	coeffs := make([]byte, 0, nbTerms*fr.Bytes)
	for i := range m.Rows {
		rowPtr[i+1] = rowPtr[i] + uint32(len(m.Rows[i]))
		for _, t := range m.Rows[i] {
			cols = append(cols, t.Col)
			b := t.Coeff.Bytes()
			coeffs = append(coeffs, b[:]...)
		}
	}

	var buf bytes.Buffer
	if err := ioutils.WriteUint64(&buf, uint64(len(m.Rows))); err != nil {
		return nil, err
	}
	if err := ioutils.CompressAndWriteUints32(&buf, rowPtr); err != nil {
		return nil, err
	}
	if err := ioutils.CompressAndWriteUints32(&buf, cols); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(coeffs))); err != nil {
		return nil, err
	}
	buf.Write(coeffs)
	return buf.Bytes(), nil
}

func (m *SparseMatrix) fromBytes(data []byte) error {
	r := bytes.NewReader(data)
	nbRows, err := ioutils.ReadUint64(r)
	if err != nil {
		return err
	}
	_, rowPtr, err := ioutils.ReadAndDecompressUints32(r)
	if err != nil {
		return err
	}
	_, cols, err := ioutils.ReadAndDecompressUints32(r)
	if err != nil {
		return err
	}
	var coeffLen uint64
	if err := binary.Read(r, binary.LittleEndian, &coeffLen); err != nil {
		return err
	}
	if coeffLen > uint64(r.Len()) {
		return errors.New("constraint: corrupted matrix body")
	}
	coeffs := make([]byte, coeffLen)
	if _, err := io.ReadFull(r, coeffs); err != nil {
		return err
	}

	// len(rowPtr)-1 rather than nbRows+1: the declared count is
	// untrusted and nbRows+1 wraps at MaxUint64
	if len(rowPtr) == 0 || uint64(len(rowPtr)-1) != nbRows {
		return errors.New("constraint: corrupted row index")
	}
	nbTerms := int(rowPtr[len(rowPtr)-1])
	if len(cols) != nbTerms || len(coeffs) != nbTerms*fr.Bytes {
		return errors.New("constraint: corrupted matrix body")
	}

	m.Rows = make([][]Term, nbRows)
	for i := range m.Rows {
		start, end := rowPtr[i], rowPtr[i+1]
		if start > end || int(end) > nbTerms {
			return fmt.Errorf("constraint: corrupted row %d", i)
		}
		m.Rows[i] = make([]Term, 0, end-start)
		for j := start; j < end; j++ {
			var t Term
			t.Col = cols[j]
			t.Coeff.SetBytes(coeffs[j*fr.Bytes : (j+1)*fr.Bytes])
			m.Rows[i] = append(m.Rows[i], t)
		}
	}
	return nil
}
