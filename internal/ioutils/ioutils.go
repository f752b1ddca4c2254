// Package ioutils implements compressed integer stream (de)serialization
// used by the constraint system binary format.
package ioutils

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/ronanh/intcomp"
)

// CompressAndWriteUints32 compresses a slice of uint32 and writes it to w.
func CompressAndWriteUints32(w io.Writer, input []uint32) error {
	buffer := intcomp.CompressUint32(input, nil)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(buffer))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, buffer)
}

// ReadAndDecompressUints32 reads a compressed slice of uint32 from r and decompresses it.
// It returns the number of bytes read, the decompressed slice and an error.
// The length prefix is untrusted; the raw words are read incrementally so a
// corrupted prefix errors out instead of triggering a huge allocation.
func ReadAndDecompressUints32(r io.Reader) (int64, []uint32, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return 0, nil, err
	}
	if length > math.MaxInt64/4 {
		return 8, nil, errors.New("ioutils: corrupted block length")
	}
	var raw bytes.Buffer
	read, err := io.CopyN(&raw, r, 4*int64(length))
	if err != nil {
		return 8 + read, nil, err
	}
	buffer := make([]uint32, length)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, buffer); err != nil {
		return 8 + read, nil, err
	}
	return 8 + read, intcomp.UncompressUint32(buffer, nil), nil
}

// WriteUint64 writes a single little-endian uint64 to w.
func WriteUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadUint64 reads a single little-endian uint64 from r.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
