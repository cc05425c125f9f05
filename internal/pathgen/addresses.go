package pathgen

import (
	"encoding/binary"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/crypto"
	"github.com/genledger/feesim/internal/labeling"
)

// AddressPool returns n distinct deterministic addresses. The same n
// always yields the same pool, which keeps generated transactions and
// their records reproducible.
func AddressPool(n int) []consensus.Address {
	addrs := make([]consensus.Address, n)
	for i := range addrs {
		var seed [8]byte
		binary.BigEndian.PutUint64(seed[:], uint64(i))
		h := crypto.HashData(append([]byte("participant/"), seed[:]...))
		copy(addrs[i][:], h[:consensus.AddressSize])
	}
	return addrs
}

// RequiredPool returns a pool size sufficient to seat any path of up to
// maxRounds rounds, plus the sender and the appealant.
func RequiredPool(maxRounds int) int {
	total := 2
	for k := 0; k <= maxRounds; k++ {
		total += labeling.NormalRoundSize(k) + labeling.AppealRoundSize(k)
	}
	return total
}
