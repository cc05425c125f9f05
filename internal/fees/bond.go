package fees

import (
	"fmt"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/labeling"
)

// AppealBond returns the bond posted for the appeal at round i: the appeal
// round's table size worth of validator compensation plus one leader
// compensation. The size is looked up by the appeal's position in the
// appeal sequence, not its raw round index.
func AppealBond(b Budget, labels []labeling.Label, i int) uint64 {
	if i < 0 || i >= len(labels) || !labels[i].IsAppeal() {
		panic(fmt.Sprintf("fees: round %d is not an appeal round", i))
	}
	size := labeling.AppealRoundSize(labeling.AppealIndex(labels, i))
	return uint64(size)*b.ValidatorsTimeout + b.LeaderTimeout
}

// appealantFor returns the address that posted the bond for the appeal at
// round i. A budget that authorizes fewer appeals than the labeling
// produced is a caller bug.
func appealantFor(b Budget, labels []labeling.Label, i int) consensus.Address {
	k := labeling.AppealIndex(labels, i)
	if k >= len(b.Appeals) {
		panic(fmt.Sprintf("fees: appeal %d at round %d has no appealant in budget", k, i))
	}
	return b.Appeals[k].Appealant
}
