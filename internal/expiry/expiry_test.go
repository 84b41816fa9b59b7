package expiry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	mm, yy, err := Split("04/27")
	require.NoError(t, err)
	require.Equal(t, "04", mm)
	require.Equal(t, "2027", yy)

	mm, yy, err = Split(" 12/30 ")
	require.NoError(t, err)
	require.Equal(t, "12", mm)
	require.Equal(t, "2030", yy)

	mm, yy, err = Split("0427")
	require.NoError(t, err)
	require.Equal(t, "04", mm)
	require.Equal(t, "2027", yy)
}

func TestSplitRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "4/27", "13/27", "00/27", "ab/cd", "04-27"} {
		_, _, err := Split(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestFace(t *testing.T) {
	require.Equal(t, "04/27", Face("04", "2027"))
	require.Equal(t, "04/27", Face("04", "27"))
}
