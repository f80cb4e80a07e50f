package secret

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthHash bcrypt-hashes a password the way prometheus expects in its
// web config basic_auth_users entries.
func BasicAuthHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// BasicAuthSnippet renders the web.yml stanza an operator pastes into the
// prometheus web config to require the stored credential.
func BasicAuthSnippet(user, hash string) string {
	return fmt.Sprintf("basic_auth_users:\n  %s: %s\n", user, hash)
}
