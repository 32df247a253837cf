package core

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// RandomString returns a cryptographically random alphanumeric string of length n.
// Used for auth salts, generated passwords and session keys.
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(saltAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = saltAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// Date truncates t to a UTC calendar date (midnight).
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO "2006-01-02" date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", CleanString(s))
}
