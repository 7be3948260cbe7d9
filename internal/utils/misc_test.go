package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID()
	require.Len(t, id, 16)
	require.Regexp(t, "^[0-9a-f]{16}$", id)
	require.NotEqual(t, id, GenerateRandomID())
}
