package utils

import (
	"encoding/hex"
	"math/rand"
)

// GenerateRandomID returns a random 16-character hex identifier.
func GenerateRandomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
