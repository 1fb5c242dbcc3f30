package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	require.Len(t, s, n*2)

	_, err = hex.DecodeString(s)
	require.NoError(t, err, "result must be valid hex")
}

func TestMakeRandHexString_Unique(t *testing.T) {
	a, err := MakeRandHexString(8)
	require.NoError(t, err)
	b, err := MakeRandHexString(8)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
