// Package fieldutils converts application data to and from field elements of
// the primary curve's scalar field.
package fieldutils

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ChunkBytes is the number of bytes packed per field element; 31 bytes always
// fit below the modulus.
const ChunkBytes = fr.Bytes - 1

// ZeroState returns an all-zero IVC state vector of the given arity.
func ZeroState(n int) []fr.Element {
	return make([]fr.Element, n)
}

// RandomElement samples a field element from rng.
func RandomElement(rng io.Reader) (fr.Element, error) {
	var e fr.Element
	// oversample to keep the modular reduction bias negligible
	buf := make([]byte, fr.Bytes+16)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return e, fmt.Errorf("sample field element: %w", err)
	}
	e.SetBytes(buf)
	return e, nil
}

// PackString splits s into nbChunks chunks of up to ChunkBytes bytes each and
// returns one field element per chunk, zero-padding the tail.
func PackString(s string, nbChunks int) ([]fr.Element, error) {
	if len(s) > nbChunks*ChunkBytes {
		return nil, fmt.Errorf("string of %d bytes exceeds %d chunks of %d bytes", len(s), nbChunks, ChunkBytes)
	}
	data := []byte(s)
	res := make([]fr.Element, nbChunks)
	for i := 0; i < nbChunks; i++ {
		start := i * ChunkBytes
		if start >= len(data) {
			break
		}
		end := start + ChunkBytes
		if end > len(data) {
			end = len(data)
		}
		res[i].SetBytes(data[start:end])
	}
	return res, nil
}

// PackShort packs a string of at most ChunkBytes bytes into a single field
// element.
func PackShort(s string) (fr.Element, error) {
	var e fr.Element
	if len(s) > ChunkBytes {
		return e, fmt.Errorf("string of %d bytes exceeds %d bytes", len(s), ChunkBytes)
	}
	e.SetBytes([]byte(s))
	return e, nil
}
