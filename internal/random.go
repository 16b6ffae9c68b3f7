package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Character classes for generated passwords. Look-alike glyphs (0/O, 1/l/I)
// are left out because generated passwords are read aloud and retyped.
const (
	lowerChars = "abcdefghijkmnopqrstuvwxyz"
	upperChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars = "23456789"
	allChars   = lowerChars + upperChars + digitChars
)

// NewPassword returns a password of length drawn from crypto/rand. When length
// is at least 3 it contains a lower case letter, an upper case letter and a digit.
func NewPassword(length int) (string, error) {
	if length < 1 {
		return "", errors.New("invalid password length")
	}

	out := make([]byte, length)
	for i := range out {
		c, err := pick(allChars)
		if err != nil {
			return "", err
		}
		out[i] = c
	}

	if length >= 3 {
		required := []string{lowerChars, upperChars, digitChars}
		positions, err := distinctPositions(length, len(required))
		if err != nil {
			return "", err
		}
		for i, class := range required {
			c, err := pick(class)
			if err != nil {
				return "", err
			}
			out[positions[i]] = c
		}
	}

	return string(out), nil
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

// distinctPositions draws k different indexes below n with a partial Fisher-Yates shuffle.
func distinctPositions(n, k int) ([]int, error) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(n-i)))
		if err != nil {
			return nil, err
		}
		swap := i + int(j.Int64())
		idx[i], idx[swap] = idx[swap], idx[i]
	}
	return idx[:k], nil
}

// HasClasses reports whether s contains a lower case letter, an upper case
// letter and a digit from the generator alphabets.
func HasClasses(s string) bool {
	return strings.ContainsAny(s, lowerChars) &&
		strings.ContainsAny(s, upperChars) &&
		strings.ContainsAny(s, digitChars)
}
