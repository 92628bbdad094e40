package credential

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt cost used when none is configured.
	DefaultCost = 12

	// MinSecretLength is the shortest secret accepted.
	MinSecretLength = 8

	// MaxSecretLength is the longest secret bcrypt can digest.
	MaxSecretLength = 72
)

// Hasher produces and checks bcrypt digests at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher clamps cost into bcrypt's accepted range.
func NewHasher(cost int) Hasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Cost() int {
	return h.cost
}

func (h Hasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Matches reports whether secret hashes to digest. Malformed digests never match.
func (h Hasher) Matches(digest, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
