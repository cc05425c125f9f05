package fees

import (
	"github.com/genledger/feesim/internal/consensus"
)

// AccountTotals are one address's cumulative quantities over a
// transaction.
type AccountTotals struct {
	Earned  uint64
	Cost    uint64
	Burned  uint64
	Slashed uint64
	Stake   uint64
}

// Balance is the address's stake-inclusive budget balance. Slashes settle
// against future staking rewards, not against the transaction, so they do
// not appear here.
func (t AccountTotals) Balance() int64 {
	return int64(t.Stake) + int64(t.Earned) - int64(t.Cost) - int64(t.Burned)
}

// Balances projects per-address cumulative totals from the event log. The
// returned addresses are in deterministic bytewise order.
func Balances(st *State) ([]consensus.Address, map[consensus.Address]AccountTotals) {
	totals := make(map[consensus.Address]AccountTotals)
	for _, ev := range st.Events {
		t := totals[ev.Address]
		t.Earned += ev.Earned
		t.Cost += ev.Cost
		t.Burned += ev.Burned
		t.Slashed += ev.Slashed
		t.Stake = st.Stake
		totals[ev.Address] = t
	}
	addrs := make([]consensus.Address, 0, len(totals))
	for a := range totals {
		addrs = append(addrs, a)
	}
	consensus.SortAddresses(addrs)
	return addrs, totals
}

// Totals sums the whole event log.
func Totals(events []FeeEvent) AccountTotals {
	var t AccountTotals
	for _, ev := range events {
		t.Earned += ev.Earned
		t.Cost += ev.Cost
		t.Burned += ev.Burned
		t.Slashed += ev.Slashed
	}
	return t
}
