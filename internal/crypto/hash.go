package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const HashSize = 32

// Hash is a 32-byte blake2b digest. Receipts and votes carry one as their
// content commitment; the zero value means no hash was attached.
type Hash [HashSize]byte

// HashData hashes the input data using blake2b-256.
func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
