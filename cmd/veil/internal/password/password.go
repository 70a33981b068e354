// Package password turns plaintext credentials into salted bcrypt digests
// and verifies candidates against stored digests.
//
// Digests use the standard modular crypt encoding ("$2a$12$" followed by the
// salt and hash), so digests written by any conformant bcrypt implementation,
// including "$2b$" digests, verify here and vice versa.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the smallest accepted work factor.
	MinCost = bcrypt.MinCost
	// MaxCost is the largest accepted work factor.
	MaxCost = bcrypt.MaxCost
	// DefaultCost is the work factor used by Hash.
	DefaultCost = 12

	// MaxLength is the longest plaintext bcrypt consumes, in bytes. Longer
	// input is rejected rather than silently truncated.
	MaxLength = 72
)

// ErrEncoding is returned when a plaintext cannot be turned into a digest.
// Errors wrapping it never contain the plaintext.
var ErrEncoding = errors.New("password cannot be encoded")

// Digest is a self-describing bcrypt digest: algorithm, cost, salt and hash.
type Digest []byte

func (d Digest) String() string {
	return string(d)
}

// Hasher hashes at a fixed work factor. It holds no mutable state and is
// safe for concurrent use. Hash and Verify are CPU bound; callers on
// latency-sensitive paths should run them on their own goroutine.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, which must be within [MinCost, MaxCost].
func NewHasher(cost int) (*Hasher, error) {
	if cost < MinCost || cost > MaxCost {
		return nil, fmt.Errorf("%w: invalid cost %d, must be between %d and %d", ErrEncoding, cost, MinCost, MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the hasher's work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a digest of plaintext under a freshly generated random salt.
// Two calls with the same plaintext return different digests.
func (h *Hasher) Hash(plaintext string) (Digest, error) {
	if len(plaintext) > MaxLength {
		return nil, fmt.Errorf("%w: password is %d bytes, limit is %d", ErrEncoding, len(plaintext), MaxLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return hash, nil
}

// Verify reports whether candidate matches digest. See the package-level Verify.
func (h *Hasher) Verify(digest Digest, candidate string) bool {
	return Verify(digest, candidate)
}

// NeedsRehash reports whether digest should be replaced by a fresh Hash of
// the same plaintext: its cost is below the hasher's or it cannot be parsed.
func (h *Hasher) NeedsRehash(digest Digest) bool {
	cost, err := Cost(digest)
	if err != nil {
		return true
	}
	return cost < h.cost
}

var defaultHasher = &Hasher{cost: DefaultCost}

// Hash hashes plaintext at DefaultCost.
func Hash(plaintext string) (Digest, error) {
	return defaultHasher.Hash(plaintext)
}

// Verify recomputes the hash of candidate with the salt and cost embedded in
// digest and compares the results in constant time. Malformed or unsupported
// digests and over-length candidates report false.
func Verify(digest Digest, candidate string) bool {
	if len(candidate) > MaxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, []byte(candidate)) == nil
}

// Cost returns the work factor embedded in digest.
func Cost(digest Digest) (int, error) {
	cost, err := bcrypt.Cost(digest)
	if err != nil {
		return 0, fmt.Errorf("failed to read digest cost: %w", err)
	}
	return cost, nil
}
