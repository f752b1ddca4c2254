package constraint

import (
	"bytes"
	"math"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/grapevine-zk/grapefold/internal/ioutils"
)

// syntheticSystem builds a deterministic system with uneven row shapes,
// including empty rows.
func syntheticSystem(nbConstraints int) *R1CS {
	cs := &R1CS{
		NbWires:  16,
		NbPubOut: 2,
		NbPubIn:  2,
		NbPriv:   11,
	}
	var coeff fr.Element
	for i := 0; i < nbConstraints; i++ {
		var a, b, c []Term
		for j := 0; j <= i%4; j++ {
			coeff.SetInt64(int64(i*31 + j*7 + 1))
			a = append(a, Term{Col: uint32((i + j) % cs.NbWires), Coeff: coeff})
		}
		coeff.SetInt64(int64(i + 1))
		b = append(b, Term{Col: uint32(i % cs.NbWires), Coeff: coeff})
		if i%3 != 0 {
			coeff.SetInt64(int64(2*i + 1))
			c = append(c, Term{Col: uint32((i * 5) % cs.NbWires), Coeff: coeff})
		}
		cs.A.Rows = append(cs.A.Rows, a)
		cs.B.Rows = append(cs.B.Rows, b)
		cs.C.Rows = append(cs.C.Rows, c)
	}
	return cs
}

func TestR1CSRoundTrip(t *testing.T) {
	for _, nbConstraints := range []int{1, 7, 64} {
		original := syntheticSystem(nbConstraints)
		require.NoError(t, original.Validate())

		var buf bytes.Buffer
		_, err := original.WriteTo(&buf)
		require.NoError(t, err)

		var decoded R1CS
		_, err = decoded.ReadFrom(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)

		if diff := cmp.Diff(original, &decoded, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("roundtrip mismatch (%d constraints):\n%s", nbConstraints, diff)
		}
	}
}

func TestR1CSReadFromRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	_, err := syntheticSystem(4).WriteTo(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	data[0] ^= 0xff

	var decoded R1CS
	_, err = decoded.ReadFrom(bytes.NewReader(data))
	require.Error(t, err)
}

// matrixBlock serializes a matrix block with arbitrary, possibly lying,
// declared sizes.
func matrixBlock(t *testing.T, nbRows uint64, rowPtr, cols []uint32, coeffLen uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ioutils.WriteUint64(&buf, nbRows))
	require.NoError(t, ioutils.CompressAndWriteUints32(&buf, rowPtr))
	require.NoError(t, ioutils.CompressAndWriteUints32(&buf, cols))
	require.NoError(t, ioutils.WriteUint64(&buf, coeffLen))
	return buf.Bytes()
}

// streamHeader writes the magic, modulus and wire counts of a stream
// declaring 4 wires.
func streamHeader(buf *bytes.Buffer) {
	buf.Write(r1csMagic[:])
	mod := fr.Modulus().Bytes()
	buf.WriteByte(byte(len(mod)))
	buf.Write(mod)
	for _, v := range []uint64{4, 1, 1, 1} {
		_ = ioutils.WriteUint64(buf, v)
	}
}

func streamWithFirstBlock(t *testing.T, block []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	streamHeader(&buf)
	blocks := [][]byte{block}
	empty, err := (&SparseMatrix{Rows: make([][]Term, 4)}).toBytes()
	require.NoError(t, err)
	blocks = append(blocks, empty, empty)
	for _, b := range blocks {
		require.NoError(t, ioutils.WriteUint64(&buf, uint64(len(b))))
		buf.Write(b)
	}
	return buf.Bytes()
}

func TestR1CSReadFromRejectsRowCountOverflow(t *testing.T) {
	// nbRows+1 wraps to 0, matching an empty row-pointer array
	block := matrixBlock(t, math.MaxUint64, nil, nil, 0)

	var decoded R1CS
	_, err := decoded.ReadFrom(bytes.NewReader(streamWithFirstBlock(t, block)))
	require.Error(t, err)
	require.Zero(t, decoded.NbWires, "receiver must stay untouched on failure")
}

func TestR1CSReadFromRejectsLyingLengths(t *testing.T) {
	t.Run("block size", func(t *testing.T) {
		var buf bytes.Buffer
		streamHeader(&buf)
		require.NoError(t, ioutils.WriteUint64(&buf, 1<<40))

		var decoded R1CS
		_, err := decoded.ReadFrom(bytes.NewReader(buf.Bytes()))
		require.Error(t, err)
		require.Zero(t, decoded.NbWires)
	})
	t.Run("coefficient length", func(t *testing.T) {
		block := matrixBlock(t, 0, []uint32{0}, nil, math.MaxUint64)

		var decoded R1CS
		_, err := decoded.ReadFrom(bytes.NewReader(streamWithFirstBlock(t, block)))
		require.Error(t, err)
	})
	t.Run("compressed array length", func(t *testing.T) {
		var block bytes.Buffer
		require.NoError(t, ioutils.WriteUint64(&block, 0))
		// forged compressed-word count with no words behind it
		require.NoError(t, ioutils.WriteUint64(&block, 1<<40))

		var decoded R1CS
		_, err := decoded.ReadFrom(bytes.NewReader(streamWithFirstBlock(t, block.Bytes())))
		require.Error(t, err)
	})
}

func TestR1CSReadFromRejectsTruncation(t *testing.T) {
	var buf bytes.Buffer
	_, err := syntheticSystem(8).WriteTo(&buf)
	require.NoError(t, err)

	data := buf.Bytes()[:buf.Len()/2]

	var decoded R1CS
	_, err = decoded.ReadFrom(bytes.NewReader(data))
	require.Error(t, err)
	require.Zero(t, decoded.NbWires, "receiver must stay untouched on failure")
}
