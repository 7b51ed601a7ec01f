package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every stored credential.
const Cost = 10

// Hash returns the bcrypt hash of plain.
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. Whitespace around the stored hash is ignored.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(hash)), []byte(plain)) == nil
}
