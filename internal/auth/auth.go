// Package auth gates store-mutating commands behind a username/password
// check. Passwords are stored only as bcrypt hashes.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// AdminUser is the username with administrative rights.
const AdminUser = "admin"

// Checker validates credentials against a set of known users.
type Checker struct {
	users map[string]string // username -> bcrypt hash
}

// NewChecker builds a Checker from username -> bcrypt-hash pairs.
func NewChecker(users map[string]string) *Checker {
	return &Checker{users: users}
}

// Authenticate reports whether the username and password match a known
// user. Unknown users and wrong passwords are indistinguishable to the
// caller.
func (c *Checker) Authenticate(username, password string) bool {
	hash, ok := c.users[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsAdmin reports whether the given user is the administrator.
func (c *Checker) IsAdmin(username string) bool {
	_, ok := c.users[username]
	return ok && username == AdminUser
}

// HashPassword produces a bcrypt hash suitable for the users config.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
