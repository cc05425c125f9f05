package fees

import (
	"fmt"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/labeling"
)

// State is a fully processed transaction: the adjusted rounds, the final
// labels, the complete fee-event log and the derived refund. Invariant
// checks run against this value; nothing in it is mutated afterwards.
type State struct {
	Participants []consensus.Address
	Rounds       []consensus.Round
	Budget       Budget
	Labels       []labeling.Label
	Events       []FeeEvent
	Slashes      []SlashRecord
	Refund       uint64
	Stake        uint64
}

// ProcessTransaction runs the full pipeline over one transaction and
// returns the fee-event log together with the final round labels. It is a
// total function of its inputs.
func ProcessTransaction(participants []consensus.Address, rounds []consensus.Round, b Budget) ([]FeeEvent, []labeling.Label) {
	st := Process(participants, rounds, b)
	return st.Events, st.Labels
}

// Process is ProcessTransaction returning the full state for inspection.
func Process(participants []consensus.Address, rounds []consensus.Round, b Budget) *State {
	reserves := NewReservePool(unusedAddresses(participants, rounds))
	adjusted, slashes := AdjustRounds(rounds, reserves, DefaultStake)

	labels := labeling.LabelRounds(adjusted)
	if len(labels) != len(adjusted) {
		panic(fmt.Sprintf("fees: %d rounds labeled as %d", len(adjusted), len(labels)))
	}

	log := &eventLog{}
	log.emit(FeeEvent{
		Address: b.Sender,
		Role:    RoleSender,
		Cost:    TotalCost(b, adjusted),
	})

	slashed := make(map[int][]SlashRecord)
	for _, s := range slashes {
		slashed[s.RoundIndex] = append(slashed[s.RoundIndex], s)
	}

	d := &distributor{rounds: adjusted, budget: b, labels: labels, log: log}
	for i := range adjusted {
		for _, s := range slashed[i] {
			log.emit(FeeEvent{
				Address:    s.Address,
				RoundIndex: roundRef(i),
				Label:      labelRef(labels[i]),
				Role:       RoleValidator,
				Vote:       voteRef(s.Vote),
				Slashed:    s.Amount,
			})
		}
		d.distribute(i)
	}

	refund := ComputeRefund(log.events, b, labels)
	log.emit(FeeEvent{
		Address: b.Sender,
		Role:    RoleSender,
		Earned:  refund,
	})

	return &State{
		Participants: participants,
		Rounds:       adjusted,
		Budget:       b,
		Labels:       labels,
		Events:       log.events,
		Slashes:      slashes,
		Refund:       refund,
		Stake:        DefaultStake,
	}
}

// unusedAddresses returns, in pool order, the participants that never
// appear in a rotation. They seed the reserve pool for idle replacement.
func unusedAddresses(participants []consensus.Address, rounds []consensus.Round) []consensus.Address {
	seated := make(map[consensus.Address]bool)
	for _, rd := range rounds {
		for _, rot := range rd.Rotations {
			for _, e := range rot.Entries {
				seated[e.Address] = true
			}
		}
	}
	var free []consensus.Address
	for _, a := range participants {
		if !seated[a] {
			free = append(free, a)
		}
	}
	return free
}
