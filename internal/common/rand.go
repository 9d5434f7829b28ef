package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// MakeRandHexString generates size random bytes and returns them hex encoded,
// so the result is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// InvitationCodeBytes is the entropy of a generated invitation code.
// Codes are rendered as 2*InvitationCodeBytes uppercase hex characters.
const InvitationCodeBytes = 3

// NewInvitationCode returns a short opaque code such as "AB12CD".
func NewInvitationCode() (string, error) {
	s, err := MakeRandHexString(InvitationCodeBytes)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// NormalizeInvitationCode trims and upper-cases user input so lookups are
// case-insensitive.
func NormalizeInvitationCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
