package fees

import (
	"github.com/genledger/feesim/internal/consensus"
)

// Penalty coefficients are part of the protocol itself, not runtime
// configuration. Each multiplies the offender's stake.
const (
	PenaltyRewardCoefficient                 = 1
	IdlePenaltyCoefficient                   = 10
	DeterministicViolationPenaltyCoefficient = 100
)

// DefaultStake is the stake every participant holds under the constant
// staking distribution. Stake never changes within a transaction.
const DefaultStake uint64 = 2_000_000

// StakingDistribution enumerates how stake is assigned to participants.
// Only the constant distribution is defined; other values are reserved.
type StakingDistribution uint8

const (
	StakingConstant StakingDistribution = iota
)

// Appeal binds an appeal round to the address that posted its bond, in
// appeal order.
type Appeal struct {
	Appealant consensus.Address
}

// Budget is the sender-provided configuration for one transaction.
type Budget struct {
	LeaderTimeout     uint64
	ValidatorsTimeout uint64
	Appeals           []Appeal
	Sender            consensus.Address
	Staking           StakingDistribution
}

// TotalCost is the maximum spend the budget authorizes: one leader
// compensation plus one validator compensation per seated participant,
// for every round.
func TotalCost(b Budget, rounds []consensus.Round) uint64 {
	var total uint64
	for _, rd := range rounds {
		total += b.LeaderTimeout + b.ValidatorsTimeout*uint64(len(rd.Last().Entries))
	}
	return total
}
