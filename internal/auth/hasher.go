// Package auth holds the password hashing and token primitives and the
// middleware that enforces them.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrInvalidCredentials when password does not match.
	Compare(hash, password string) error
}

// Bcrypt hashes with golang.org/x/crypto/bcrypt at Cost.
type Bcrypt struct {
	Cost int
}

func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCredentials
	case err != nil:
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}
