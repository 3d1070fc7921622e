// Package credentials checks submitted passwords against stored hashes.
package credentials

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Compare(plaintext string, hash []byte) bool
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) ([]byte, error) {
	const op = "credentials.BcryptHasher.Hash"

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return hash, nil
}

// Compare runs in constant time with respect to the plaintext. A malformed
// hash compares as false.
func (h *BcryptHasher) Compare(plaintext string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

type Verifier struct {
	hasher Hasher
}

func NewVerifier(hasher Hasher) *Verifier {
	return &Verifier{hasher: hasher}
}

// Verify reports whether plaintext matches storedHash. Accounts without a
// stored hash never reach the hasher.
func (v *Verifier) Verify(plaintext string, storedHash []byte) bool {
	if len(storedHash) == 0 {
		return false
	}

	return v.hasher.Compare(plaintext, storedHash)
}
