// Package password hashes and checks platform user passwords.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash hashes a plain password using bcrypt.
func Hash(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// Check compares plain password with hashed password.
func Check(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
