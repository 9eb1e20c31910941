package family

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the stored credential hash. The same hash string
// doubles as the wallet encryption password, so a wallet is only
// decryptable by someone who can produce the account's credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify is the credential verifier: true when the secret matches the
// stored hash.
func Verify(secret, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret)) == nil
}
