package testutils

import (
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/crypto"
)

func RandomHash(t *testing.T) crypto.Hash {
	raw := make([]byte, crypto.HashSize)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return crypto.Hash(raw)
}

func RandomAddress(t *testing.T) consensus.Address {
	var a consensus.Address
	_, err := rand.Read(a[:])
	require.NoError(t, err)
	return a
}

// Addresses returns n distinct addresses numbered in bytewise order, so
// tests can reason about deterministic tie-breaks.
func Addresses(n int) []consensus.Address {
	out := make([]consensus.Address, n)
	for i := range out {
		binary.BigEndian.PutUint64(out[i][consensus.AddressSize-8:], uint64(i+1))
	}
	return out
}
