// Package internal provides the helpers shared by the packages of the
// module that are not part of its API.
package internal

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomBytes helper function allows to generate a random byte slice of n bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomHex helper function allows to generate a random hex string of n bytes.
func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}

// NewID returns an identifier shaped like the Stripe ones, the prefix, an
// underscore and n random bytes in hex: NewID("plat", 8) gives
// plat_1f2e3d4c5b6a7988.
func NewID(prefix string, n int) string {
	return prefix + "_" + RandomHex(n)
}
