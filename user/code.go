package user

import (
	"crypto/sha256"
	"math/big"
	"strings"
)

// ConnectionCodeFromEmail derives the shareable 6-character connection
// code from an email address: SHA-256, base36, first six characters
// uppercased. Deterministic, so the same email always yields the same
// code.
func ConnectionCodeFromEmail(email string) string {
	digest := sha256.Sum256([]byte(email))
	code := strings.ToUpper(new(big.Int).SetBytes(digest[:]).Text(36))
	if len(code) < 6 {
		code = strings.Repeat("0", 6-len(code)) + code
	}
	return code[:6]
}
