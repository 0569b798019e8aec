// Package seed derives reproducible pseudo-random streams from string keys.
// Two generators built from the same key emit identical sequences, which is
// the only repeatability contract the synthetic-data engine offers.
package seed

import (
	"crypto/md5"
	"encoding/hex"
	"math/rand"
	"strconv"
)

// FromKey hashes a key to a 32-bit seed. MD5 is used for stability, not
// security: the same key must map to the same seed on every platform and
// release, and collisions only matter across the expected key space of
// window/filter combinations.
func FromKey(key string) uint32 {
	sum := md5.Sum([]byte(key))
	digest := hex.EncodeToString(sum[:])
	v, err := strconv.ParseUint(digest[:8], 16, 32)
	if err != nil {
		// Unreachable: the first 8 chars of a hex digest always parse
		return 0
	}
	return uint32(v)
}

// NewRand returns a generator seeded from the key
func NewRand(key string) *rand.Rand {
	return rand.New(rand.NewSource(int64(FromKey(key))))
}
