package helpers

import "golang.org/x/crypto/bcrypt"

// bcryptCost stays at the library default; raise it here if the hardware
// budget allows.
const bcryptCost = bcrypt.DefaultCost

// HashPassword bcrypts a plaintext password. The storage layer only ever
// sees the resulting hash.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	return string(b), err
}

// CompareHashAndPassword reports whether plain matches the stored hash.
func CompareHashAndPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
