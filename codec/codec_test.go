package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := Value{Type: 7, Data: []byte("the quick brown fox jumps over the lazy dog")}
	enc := Encode(v)

	assert.True(t, Verify(enc))

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDecodeEmptyValue(t *testing.T) {
	v := Value{Type: 0, Data: nil}
	enc := Encode(v)
	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, byte(0), got.Type)
	assert.Empty(t, got.Data)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	enc := Encode(Value{Type: 1, Data: []byte("hello")})
	enc[2] ^= 0xFF // flip every bit of one byte in the compressed payload

	assert.False(t, Verify(enc))
	_, err := Decode(enc)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeRejectsTooShort(t *testing.T) {
	_, err := Decode([]byte{1, 2})
	assert.ErrorIs(t, err, ErrTooShort)
}
