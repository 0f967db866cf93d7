package shared

import "golang.org/x/crypto/bcrypt"

// PasswordHasher derives and verifies bcrypt digests. Plaintext passwords are
// never stored or logged.
type PasswordHasher struct {
	cost  int
	decoy string
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. Costs outside
// the bcrypt range fall back to the library default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	decoy, _ := bcrypt.GenerateFromPassword([]byte("decoy"), cost)
	return &PasswordHasher{cost: cost, decoy: string(decoy)}
}

// Hash derives a salted digest from the plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compares plaintext against a stored digest in constant time. A
// malformed digest fails closed.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// VerifyDummy runs a full comparison against a throwaway digest. Rejection
// paths that have no stored digest call this so they cost the same as a real
// comparison.
func (h *PasswordHasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(h.decoy), []byte(plaintext))
}
