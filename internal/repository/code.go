package repository

import (
	"crypto/rand"
	"math/big"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MatchCodeLength is the length of the shareable match id.
const MatchCodeLength = 6

// GenerateCode returns a random uppercase alphanumeric code.
func GenerateCode(length int) (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
