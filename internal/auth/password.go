package auth

import "github.com/alexedwards/argon2id"

// HashPassword derives an argon2id hash from a plaintext password.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// CheckPassword reports whether the plaintext password matches the stored
// argon2id hash.
func CheckPassword(password, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, hash)
}
