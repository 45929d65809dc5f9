package utils

import "math/rand"

// Unambiguous alphabet: no 0/O, 1/I/L.
const shortCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateShortCode returns the external-facing lobby code players share.
func GenerateShortCode(length int) string {
	if length <= 0 {
		length = 6
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = shortCodeAlphabet[rand.Intn(len(shortCodeAlphabet))]
	}
	return string(b)
}
