package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	bookingCodePrefix = "HB-"
	bookingCodeLength = 8
	// Crockford alphabet without I, L, O and U so codes survive being read aloud.
	bookingCodeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// codeBytes skips bytes 6 and 8 of a v4 UUID, which carry the version and variant bits.
var codeBytes = [bookingCodeLength]int{0, 1, 2, 3, 4, 5, 7, 9}

// NewBookingCode returns a human-referenceable code such as HB-7K2M9Q4T. Codes are
// random, so callers storing them must be ready to draw again on a collision.
func NewBookingCode() string {
	return bookingCodeFrom(uuid.New())
}

func bookingCodeFrom(id uuid.UUID) string {
	var sb strings.Builder
	sb.Grow(len(bookingCodePrefix) + bookingCodeLength)
	sb.WriteString(bookingCodePrefix)
	for _, i := range codeBytes {
		sb.WriteByte(bookingCodeAlphabet[int(id[i])%len(bookingCodeAlphabet)])
	}
	return sb.String()
}

func IsBookingCode(s string) bool {
	if len(s) != len(bookingCodePrefix)+bookingCodeLength || !strings.HasPrefix(s, bookingCodePrefix) {
		return false
	}
	for _, r := range s[len(bookingCodePrefix):] {
		if !strings.ContainsRune(bookingCodeAlphabet, r) {
			return false
		}
	}
	return true
}
