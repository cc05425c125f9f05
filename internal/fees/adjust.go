package fees

import (
	"encoding/binary"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/crypto"
)

// SlashRecord notes a penalty discovered while normalizing a rotation,
// before labeling runs.
type SlashRecord struct {
	RoundIndex int
	Address    consensus.Address
	Vote       consensus.Vote
	Amount     uint64
}

// ReservePool hands out replacement addresses in a fixed order. When the
// provided pool runs dry it synthesizes further addresses
// deterministically so the pipeline stays total.
type ReservePool struct {
	addrs []consensus.Address
	used  int
}

func NewReservePool(addrs []consensus.Address) *ReservePool {
	return &ReservePool{addrs: addrs}
}

func (p *ReservePool) Next() consensus.Address {
	if p.used < len(p.addrs) {
		a := p.addrs[p.used]
		p.used++
		return a
	}
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], uint64(p.used))
	p.used++
	h := crypto.HashData(append([]byte("reserve/"), seed[:]...))
	var a consensus.Address
	copy(a[:], h[:consensus.AddressSize])
	return a
}

// AdjustRounds rewrites every rotation before labeling: idle validators
// are replaced by fresh reserve addresses and slashed, and validators
// whose vote hash contradicts the leader's receipt hash are slashed for a
// deterministic violation. The input rounds are never mutated; the result
// is a new set of rounds together with the penalties to record.
func AdjustRounds(rounds []consensus.Round, reserves *ReservePool, stake uint64) ([]consensus.Round, []SlashRecord) {
	adjusted := make([]consensus.Round, len(rounds))
	var slashes []SlashRecord
	for i, rd := range rounds {
		rotations := make([]consensus.Rotation, len(rd.Rotations))
		for j, rot := range rd.Rotations {
			entries := make([]consensus.Entry, len(rot.Entries))
			copy(entries, rot.Entries)

			var receiptHash crypto.Hash
			if leader, ok := rot.Leader(); ok && leader.Vote.Action == consensus.LeaderReceipt {
				receiptHash = leader.Vote.Content
			}

			for k, e := range entries {
				if e.Vote.Action != consensus.NoLeaderAction {
					continue
				}
				switch {
				case e.Vote.Kind == consensus.VoteIdle:
					entries[k] = consensus.Entry{
						Address: reserves.Next(),
						Vote:    consensus.Plain(consensus.VoteIdle),
					}
					slashes = append(slashes, SlashRecord{
						RoundIndex: i,
						Address:    e.Address,
						Vote:       e.Vote,
						Amount:     IdlePenaltyCoefficient * stake,
					})
				case !receiptHash.IsZero() && !e.Vote.Content.IsZero() && e.Vote.Content != receiptHash:
					slashes = append(slashes, SlashRecord{
						RoundIndex: i,
						Address:    e.Address,
						Vote:       e.Vote,
						Amount:     DeterministicViolationPenaltyCoefficient * stake,
					})
				}
			}
			rotations[j] = consensus.Rotation{Entries: entries}
		}
		adjusted[i] = consensus.Round{Rotations: rotations}
	}
	return adjusted, slashes
}
