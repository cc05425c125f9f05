package invariants_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/crypto"
	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/invariants"
	"github.com/genledger/feesim/internal/testutils"
)

// processed builds a clean, table-sized single-round transaction state.
func processed(t *testing.T) *fees.State {
	t.Helper()
	pool := testutils.Addresses(6)
	receiptHash := crypto.HashData([]byte("receipt"))
	votes := []consensus.Vote{
		consensus.Receipt(consensus.VoteAgree, receiptHash),
		consensus.Plain(consensus.VoteAgree),
		consensus.Plain(consensus.VoteAgree),
		consensus.Plain(consensus.VoteDisagree),
		consensus.Plain(consensus.VoteTimeout),
	}
	entries := make([]consensus.Entry, len(votes))
	for i := range votes {
		entries[i] = consensus.Entry{Address: pool[i], Vote: votes[i]}
	}
	rounds := []consensus.Round{{Rotations: []consensus.Rotation{{Entries: entries}}}}
	budget := fees.Budget{LeaderTimeout: 100, ValidatorsTimeout: 200, Sender: pool[5]}
	return fees.Process(pool, rounds, budget)
}

func Test_RegistryHoldsTwentyTwo(t *testing.T) {
	registry := invariants.NewRegistry()
	rules := registry.All()
	require.Len(t, rules, 22)
	for i, inv := range rules {
		require.Equal(t, i, inv.ID())
		require.NotEmpty(t, inv.Name())
	}
}

func Test_CleanStatePasses(t *testing.T) {
	st := processed(t)
	require.Empty(t, invariants.CheckAll(st))
	registry := invariants.NewRegistry()
	require.Equal(t, uint32(1)<<22-1, registry.Bitfield(st))
}

func Test_ConservationViolationDetected(t *testing.T) {
	st := processed(t)
	// Inflate one earning so costs no longer cover the flows.
	for i := range st.Events {
		if st.Events[i].Earned > 0 {
			st.Events[i].Earned++
			break
		}
	}
	violations := invariants.CheckAll(st)
	require.NotEmpty(t, violations)
	found := false
	for _, v := range violations {
		if v.Name == "conservation_of_value" {
			found = true
			require.Equal(t, invariants.SeverityCritical, v.Severity)
			require.Contains(t, v.Context, "total_costs")
		}
	}
	require.True(t, found)
}

func Test_SequenceViolationDetected(t *testing.T) {
	st := processed(t)
	st.Events[2].SequenceID = st.Events[1].SequenceID
	violations := invariants.NewRegistry().CheckGroup(st, invariants.GroupPerformance)
	require.NotEmpty(t, violations)
	require.Equal(t, "fee_event_ordering", violations[0].Name)
}

func Test_StakeImmutabilityViolationDetected(t *testing.T) {
	st := processed(t)
	st.Events[0].StakedDelta = 5
	violations := invariants.NewRegistry().CheckGroup(st, invariants.GroupState)
	require.NotEmpty(t, violations)
	require.Equal(t, "stake_immutability", violations[0].Name)
}

func Test_RoleExclusivityViolationDetected(t *testing.T) {
	st := processed(t)
	// Forge a validator event for the leader in its own round.
	leader := st.Rounds[0].Last().Entries[0]
	ev := st.Events[len(st.Events)-1]
	idx := 0
	ev.Address = leader.Address
	ev.Role = fees.RoleValidator
	ev.RoundIndex = &idx
	st.Events = append(st.Events, ev)
	names := violationNames(invariants.CheckAll(st))
	require.Contains(t, names, "role_exclusivity")
}

func Test_CheckCriticalFiltersSeverity(t *testing.T) {
	st := processed(t)
	st.Labels[0] = 250
	violations := invariants.NewRegistry().CheckCritical(st)
	require.NotEmpty(t, violations)
	for _, v := range violations {
		require.Equal(t, invariants.SeverityCritical, v.Severity)
	}
	require.Contains(t, violationNames(violations), "round_label_validity")
}

func Test_BitfieldClearsFailingBit(t *testing.T) {
	st := processed(t)
	st.Events[0].StakedDelta = 1
	bits := invariants.NewRegistry().Bitfield(st)
	require.Zero(t, bits&(1<<16), "stake_immutability bit should be clear")
	require.NotZero(t, bits&1, "conservation bit should stay set")
}

func violationNames(vs []invariants.Violation) []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return names
}
