package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeccakData(t *testing.T) {
	// keccak256("") is the well-known empty digest.
	want, err := hex.DecodeString("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	require.NoError(t, err)

	got := KeccakData(nil)
	require.Equal(t, want, got[:])
}

func TestHashData(t *testing.T) {
	a := HashData([]byte("route"))
	b := HashData([]byte("route"))
	c := HashData([]byte("swap"))

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a.String(), 2*HashSize)
}
