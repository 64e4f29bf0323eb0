package crc

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeHex is a test helper; inputs are literals, and a decode error
// fails the test at once.
func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestComputeMatchesReferenceVector(t *testing.T) {
	// Scenario 3: data portion 8D406B902015A678D4D220, expected CRC 0xAA4BDA.
	data := decodeHex(t, "8D406B902015A678D4D220")[:DataLen]
	assert.Equal(t, uint32(0xAA4BDA), Compute(data))
}

func TestValidateAcceptsWellFormedFrame(t *testing.T) {
	data := decodeHex(t, "8D406B902015A678D4D220")[:DataLen]
	crc := Compute(data)
	frame := append(append([]byte{}, data...), byte(crc>>16), byte(crc>>8), byte(crc))
	assert.True(t, Validate(frame))
}

func TestValidateRejectsCorruptFrame(t *testing.T) {
	data := decodeHex(t, "8D406B902015A678D4D220")[:DataLen]
	crc := Compute(data)
	frame := append(append([]byte{}, data...), byte(crc>>16), byte(crc>>8), byte(crc))
	frame[0] ^= 0xFF // corrupt beyond single-bit recoverability
	assert.False(t, Validate(frame))
}

func TestRecoverSingleBitFixesOneFlippedBit(t *testing.T) {
	data := decodeHex(t, "8D406B902015A678D4D220")[:DataLen]
	crc := Compute(data)
	good := append(append([]byte{}, data...), byte(crc>>16), byte(crc>>8), byte(crc))

	for byteIdx := 0; byteIdx < DataLen; byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte{}, good...)
			corrupt[byteIdx] ^= 1 << uint(7-bit)

			recovered, ok := RecoverSingleBit(corrupt)
			require.True(t, ok, "byte %d bit %d should be recoverable", byteIdx, bit)
			assert.Equal(t, good, recovered)
		}
	}
}

func TestRecoverSingleBitFailsOnTwoFlippedBits(t *testing.T) {
	data := decodeHex(t, "8D406B902015A678D4D220")[:DataLen]
	crc := Compute(data)
	good := append(append([]byte{}, data...), byte(crc>>16), byte(crc>>8), byte(crc))

	corrupt := append([]byte{}, good...)
	corrupt[0] ^= 0x01
	corrupt[1] ^= 0x80

	_, ok := RecoverSingleBit(corrupt)
	assert.False(t, ok)
}

func TestRecoverIsSupersetOfUnalteredPath(t *testing.T) {
	data := decodeHex(t, "8d7c6b3020293532d70820fc8090")[:DataLen]
	crc := Compute(data)
	good := append(append([]byte{}, data...), byte(crc>>16), byte(crc>>8), byte(crc))

	assert.True(t, Validate(good))
	recovered, ok := RecoverSingleBit(good)
	// The recovery flow calls RecoverSingleBit only after Validate fails,
	// so a frame that validates passes that flow unchanged. Called
	// directly on such a frame, RecoverSingleBit finds no matching flip
	// (every flip changes the parity) and reports false; this part of
	// the test only requires that the call returns without panicking.
	_ = recovered
	_ = ok
}
