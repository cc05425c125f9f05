package fees

import (
	"fmt"

	"github.com/genledger/feesim/internal/labeling"
)

// bondFunded reports whether a round's earnings and burns are paid out of
// a forfeited appeal bond rather than the sender's budget.
func bondFunded(l labeling.Label) bool {
	return l.IsUnsuccessfulAppeal() ||
		l == labeling.SplitPreviousAppealBond ||
		l == labeling.LeaderTimeout50PreviousAppealBond
}

// ComputeRefund returns the unused part of the sender's authorized spend.
// Bond-funded flows never touch the budget, and a successful appellant's
// payout counts against the budget only beyond the returned bond.
func ComputeRefund(events []FeeEvent, b Budget, labels []labeling.Label) uint64 {
	var senderCost, paid uint64
	for _, ev := range events {
		if ev.Address == b.Sender {
			senderCost += ev.Cost
			continue
		}
		if ev.RoundIndex == nil || ev.Label == nil {
			continue
		}
		if ev.Role == RoleAppealant {
			if ev.Earned > 0 {
				bond := AppealBond(b, labels, *ev.RoundIndex)
				paid += ev.Earned - bond
			}
			continue
		}
		if bondFunded(*ev.Label) {
			continue
		}
		paid += ev.Earned + ev.Burned
	}
	if paid > senderCost {
		panic(fmt.Sprintf("fees: distributed %d beyond the authorized budget %d", paid, senderCost))
	}
	return senderCost - paid
}
