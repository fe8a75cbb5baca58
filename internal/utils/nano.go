package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	NanoidSize     = 32
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	lowerAlphanumeric = "0123456789abcdefghijklmnopqrstuvwxyz"
	digits            = "0123456789"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// IsNanoID reports whether id has the shape produced by NanoID.
func IsNanoID(id string) bool {
	if len(id) != NanoidSize {
		return false
	}

	for _, r := range id {
		if !strings.ContainsRune(nanoidAlphabet, r) {
			return false
		}
	}

	return true
}

// RandomFrom samples size symbols uniformly from alphabet.
func RandomFrom(alphabet string, size int) (string, error) {
	return gonanoid.Generate(alphabet, size)
}

func RandomLowerAlnum(size int) string {
	return gonanoid.MustGenerate(lowerAlphanumeric, size)
}

func RandomDigits(size int) string {
	return gonanoid.MustGenerate(digits, size)
}
