package tokenstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTripBindsName(t *testing.T) {
	encoded, err := GenerateKey()
	require.NoError(t, err)
	key, err := decodeKey(encoded)
	require.NoError(t, err)
	s, err := newSealer(key)
	require.NoError(t, err)

	nonce, ct, err := s.seal("session_token", []byte("tok"))
	require.NoError(t, err)

	pt, err := s.open("session_token", nonce, ct)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(pt))

	_, err = s.open("other_item", nonce, ct)
	assert.Error(t, err, "ciphertext must not open under another name")

	_, err = s.open("session_token", nonce[:4], ct)
	assert.Error(t, err)
}

func TestLoadOrCreateKey_Stable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secure.key")

	first, err := loadOrCreateKey(path)
	require.NoError(t, err)
	second, err := loadOrCreateKey(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestDecodeKey_Invalid(t *testing.T) {
	tests := []string{"", "not base64!!", "c2hvcnQ="}
	for _, in := range tests {
		_, err := decodeKey(in)
		assert.Error(t, err, "decodeKey(%q)", in)
	}
}
