package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret returns a bcrypt hash using the given cost
func HashSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret compares a bcrypt hash with a plain secret
func VerifySecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
