package fees_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/crypto"
	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/invariants"
	"github.com/genledger/feesim/internal/labeling"
	"github.com/genledger/feesim/internal/testutils"
)

var receiptHash = crypto.HashData([]byte("receipt"))

func entriesOf(addrs []consensus.Address, votes []consensus.Vote) []consensus.Entry {
	entries := make([]consensus.Entry, len(votes))
	for i := range votes {
		entries[i] = consensus.Entry{Address: addrs[i], Vote: votes[i]}
	}
	return entries
}

func oneRotation(addrs []consensus.Address, votes ...consensus.Vote) consensus.Round {
	return consensus.Round{Rotations: []consensus.Rotation{{Entries: entriesOf(addrs, votes)}}}
}

func plainVotes(kind consensus.VoteKind, n int) []consensus.Vote {
	votes := make([]consensus.Vote, n)
	for i := range votes {
		votes[i] = consensus.Plain(kind)
	}
	return votes
}

// sumsFor aggregates the event log for one address.
func sumsFor(events []fees.FeeEvent, a consensus.Address) fees.AccountTotals {
	var t fees.AccountTotals
	for _, ev := range events {
		if ev.Address != a {
			continue
		}
		t.Earned += ev.Earned
		t.Cost += ev.Cost
		t.Burned += ev.Burned
		t.Slashed += ev.Slashed
	}
	return t
}

func requireConservation(t *testing.T, events []fees.FeeEvent) {
	t.Helper()
	totals := fees.Totals(events)
	require.Equal(t, totals.Cost, totals.Earned+totals.Burned,
		"costs %d != earnings %d + burns %d", totals.Cost, totals.Earned, totals.Burned)
}

func requireAllInvariants(t *testing.T, st *fees.State) {
	t.Helper()
	violations := invariants.CheckAll(st)
	require.Empty(t, violations, "unexpected invariant violations: %+v", violations)
}

// A plain agree round: the leader submits, four validators side with it,
// one dissents.
func Test_NormalRoundPlainAgree(t *testing.T) {
	pool := testutils.Addresses(7)
	sender := pool[6]
	rounds := []consensus.Round{
		oneRotation(pool,
			consensus.Receipt(consensus.VoteAgree, receiptHash),
			consensus.Plain(consensus.VoteAgree),
			consensus.Plain(consensus.VoteAgree),
			consensus.Plain(consensus.VoteAgree),
			consensus.Plain(consensus.VoteAgree),
			consensus.Plain(consensus.VoteDisagree),
		),
	}
	budget := fees.Budget{LeaderTimeout: 100, ValidatorsTimeout: 200, Sender: sender}

	st := fees.Process(pool, rounds, budget)
	testutils.RequireLabels(t, []labeling.Label{labeling.NormalRound}, st.Labels)

	require.Equal(t, uint64(300), sumsFor(st.Events, pool[0]).Earned)
	for _, v := range pool[1:5] {
		require.Equal(t, uint64(200), sumsFor(st.Events, v).Earned)
	}
	require.Equal(t, uint64(200), sumsFor(st.Events, pool[5]).Burned)
	require.Zero(t, sumsFor(st.Events, pool[5]).Earned)

	total := fees.TotalCost(budget, st.Rounds)
	require.Equal(t, uint64(1300), total)
	require.Equal(t, total-1300, st.Refund)

	requireConservation(t, st.Events)
	require.Empty(t, invariants.NewRegistry().CheckGroup(st, invariants.GroupFinancial))
}

// A successful leader appeal: the contested round is voided, the
// appealant recovers the bond plus the leader compensation, and the
// re-election distributes normally.
func Test_LeaderAppealSuccessful(t *testing.T) {
	pool := testutils.Addresses(25)
	sender, appealant := pool[23], pool[24]

	r0 := oneRotation(pool[:5],
		consensus.Receipt(consensus.VoteAgree, receiptHash),
		consensus.Plain(consensus.VoteAgree),
		consensus.Plain(consensus.VoteDisagree),
		consensus.Plain(consensus.VoteDisagree),
		consensus.Plain(consensus.VoteDisagree),
	)
	r1 := oneRotation(pool[5:12], plainVotes(consensus.VoteNotApplicable, 7)...)
	r2votes := []consensus.Vote{consensus.Receipt(consensus.VoteDisagree, receiptHash)}
	r2votes = append(r2votes, plainVotes(consensus.VoteAgree, 7)...)
	r2votes = append(r2votes, plainVotes(consensus.VoteDisagree, 3)...)
	r2 := oneRotation(pool[12:23], r2votes...)

	budget := fees.Budget{
		LeaderTimeout:     100,
		ValidatorsTimeout: 200,
		Appeals:           []fees.Appeal{{Appealant: appealant}},
		Sender:            sender,
	}

	st := fees.Process(pool, []consensus.Round{r0, r1, r2}, budget)
	testutils.RequireLabels(t, []labeling.Label{
		labeling.SkipRound,
		labeling.AppealLeaderSuccessful,
		labeling.NormalRound,
	}, st.Labels)

	bond := fees.AppealBond(budget, st.Labels, 1)
	require.Equal(t, uint64(1500), bond)
	appealantTotals := sumsFor(st.Events, appealant)
	require.Equal(t, bond, appealantTotals.Cost)
	require.Equal(t, bond+100, appealantTotals.Earned)

	// The voided round pays nothing.
	for _, ev := range st.Events {
		if ev.RoundIndex != nil && *ev.RoundIndex == 0 {
			t.Fatalf("skip round emitted event %d", ev.SequenceID)
		}
	}
	// Re-election validators voting with the majority earn.
	for _, v := range pool[13:20] {
		require.Equal(t, uint64(200), sumsFor(st.Events, v).Earned)
	}
	require.Equal(t, uint64(300), sumsFor(st.Events, pool[12]).Earned)

	require.Equal(t, uint64(2500), st.Refund)
	requireConservation(t, st.Events)
	requireAllInvariants(t, st)
}

// An unsuccessful validator appeal followed by an undetermined
// re-election: the bond is split across the re-election's validators.
func Test_ValidatorAppealUnsuccessfulSplitsBond(t *testing.T) {
	pool := testutils.Addresses(25)
	sender, appealant := pool[23], pool[24]

	r0 := oneRotation(pool[:5],
		consensus.Receipt(consensus.VoteAgree, receiptHash),
		consensus.Plain(consensus.VoteAgree),
		consensus.Plain(consensus.VoteAgree),
		consensus.Plain(consensus.VoteAgree),
		consensus.Plain(consensus.VoteDisagree),
	)
	r1votes := append(plainVotes(consensus.VoteAgree, 4), plainVotes(consensus.VoteDisagree, 3)...)
	r1 := oneRotation(pool[5:12], r1votes...)
	r2votes := []consensus.Vote{consensus.Receipt(consensus.VoteAgree, receiptHash)}
	r2votes = append(r2votes, plainVotes(consensus.VoteAgree, 4)...)
	r2votes = append(r2votes, plainVotes(consensus.VoteDisagree, 5)...)
	r2votes = append(r2votes, consensus.Plain(consensus.VoteTimeout))
	r2 := oneRotation(pool[12:23], r2votes...)

	budget := fees.Budget{
		LeaderTimeout:     100,
		ValidatorsTimeout: 200,
		Appeals:           []fees.Appeal{{Appealant: appealant}},
		Sender:            sender,
	}

	st := fees.Process(pool, []consensus.Round{r0, r1, r2}, budget)
	testutils.RequireLabels(t, []labeling.Label{
		labeling.NormalRound,
		labeling.AppealValidatorUnsuccessful,
		labeling.SplitPreviousAppealBond,
	}, st.Labels)

	bond := fees.AppealBond(budget, st.Labels, 1)
	require.Equal(t, uint64(1500), bond)
	require.Equal(t, bond, sumsFor(st.Events, appealant).Cost)
	require.Zero(t, sumsFor(st.Events, appealant).Earned)

	// The split round: leader takes one leader compensation, the ten
	// validators split the remaining 1400 evenly.
	require.Equal(t, uint64(100), sumsFor(st.Events, pool[12]).Earned)
	for _, v := range pool[13:23] {
		require.Equal(t, uint64(140), sumsFor(st.Events, v).Earned)
	}

	require.Equal(t, uint64(3800), st.Refund)
	requireConservation(t, st.Events)
	requireAllInvariants(t, st)
}

// Chained unsuccessful validator appeals: each bond settles in its own
// round, burned down by whatever its validators earned.
func Test_ChainedUnsuccessfulAppeals(t *testing.T) {
	pool := testutils.Addresses(62)
	sender, appealant := pool[60], pool[61]

	agreeRound := func(addrs []consensus.Address, agree, disagree int) consensus.Round {
		votes := []consensus.Vote{consensus.Receipt(consensus.VoteAgree, receiptHash)}
		votes = append(votes, plainVotes(consensus.VoteAgree, agree)...)
		votes = append(votes, plainVotes(consensus.VoteDisagree, disagree)...)
		return oneRotation(addrs, votes...)
	}
	upholdAppeal := func(addrs []consensus.Address, agree, disagree int) consensus.Round {
		votes := append(plainVotes(consensus.VoteAgree, agree), plainVotes(consensus.VoteDisagree, disagree)...)
		return oneRotation(addrs, votes...)
	}

	rounds := []consensus.Round{
		agreeRound(pool[0:5], 3, 1),
		upholdAppeal(pool[5:12], 4, 3),
		agreeRound(pool[12:23], 6, 4),
		upholdAppeal(pool[23:36], 7, 6),
		agreeRound(pool[36:59], 12, 10),
	}
	budget := fees.Budget{
		LeaderTimeout:     100,
		ValidatorsTimeout: 200,
		Appeals:           []fees.Appeal{{Appealant: appealant}, {Appealant: appealant}},
		Sender:            sender,
	}

	st := fees.Process(pool, rounds, budget)
	testutils.RequireLabels(t, []labeling.Label{
		labeling.NormalRound,
		labeling.AppealValidatorUnsuccessful,
		labeling.NormalRound,
		labeling.AppealValidatorUnsuccessful,
		labeling.NormalRound,
	}, st.Labels)

	require.Equal(t, uint64(1500), fees.AppealBond(budget, st.Labels, 1))
	require.Equal(t, uint64(2700), fees.AppealBond(budget, st.Labels, 3))

	// Appeal validators earn out of the bond; the appealant burns the
	// residue of both bonds: (1500-800-600) + (2700-1400-1200).
	appealantTotals := sumsFor(st.Events, appealant)
	require.Equal(t, uint64(4200), appealantTotals.Cost)
	require.Equal(t, uint64(200), appealantTotals.Burned)

	requireConservation(t, st.Events)
	requireAllInvariants(t, st)
}

// A transaction that is nothing but a leader timeout: half compensation,
// everything else refunds.
func Test_SoleLeaderTimeout(t *testing.T) {
	pool := testutils.Addresses(6)
	sender := pool[5]
	votes := []consensus.Vote{consensus.TimedOut()}
	votes = append(votes, plainVotes(consensus.VoteAgree, 4)...)
	rounds := []consensus.Round{oneRotation(pool[:5], votes...)}
	budget := fees.Budget{LeaderTimeout: 100, ValidatorsTimeout: 200, Sender: sender}

	st := fees.Process(pool, rounds, budget)
	testutils.RequireLabels(t, []labeling.Label{labeling.LeaderTimeout50Percent}, st.Labels)

	require.Equal(t, uint64(50), sumsFor(st.Events, pool[0]).Earned)
	total := fees.TotalCost(budget, st.Rounds)
	require.Equal(t, total-50, st.Refund)
	requireConservation(t, st.Events)
	requireAllInvariants(t, st)
}

// An idle validator is replaced and slashed; a validator echoing the
// wrong receipt hash is slashed harder. Labeling runs on the adjusted
// rotation.
func Test_IdleAndViolationAdjustment(t *testing.T) {
	pool := testutils.Addresses(8)
	sender := pool[7]
	wrongHash := crypto.HashData([]byte("forged"))
	rounds := []consensus.Round{
		oneRotation(pool[:5],
			consensus.Receipt(consensus.VoteAgree, receiptHash),
			consensus.WithContent(consensus.VoteAgree, wrongHash),
			consensus.Plain(consensus.VoteIdle),
			consensus.WithContent(consensus.VoteAgree, receiptHash),
			consensus.Plain(consensus.VoteAgree),
		),
	}
	budget := fees.Budget{LeaderTimeout: 100, ValidatorsTimeout: 200, Sender: sender}

	st := fees.Process(pool, rounds, budget)
	testutils.RequireLabels(t, []labeling.Label{labeling.NormalRound}, st.Labels)

	// The idle seat now belongs to the reserve address pool[5].
	adjusted := st.Rounds[0].Last()
	require.Equal(t, pool[5], adjusted.Entries[2].Address)
	_, seated := adjusted.Vote(pool[2])
	require.False(t, seated)

	require.Equal(t, uint64(10*fees.DefaultStake), sumsFor(st.Events, pool[2]).Slashed)
	require.Equal(t, uint64(100*fees.DefaultStake), sumsFor(st.Events, pool[1]).Slashed)

	// The violator still voted with the majority and earns; the reserve
	// seat earns nothing.
	require.Equal(t, uint64(200), sumsFor(st.Events, pool[1]).Earned)
	require.Zero(t, sumsFor(st.Events, pool[5]).Earned)

	requireConservation(t, st.Events)
	requireAllInvariants(t, st)
}

func Test_ProcessTransactionDeterministic(t *testing.T) {
	pool := testutils.Addresses(7)
	rounds := []consensus.Round{
		oneRotation(pool[:5],
			consensus.Receipt(consensus.VoteAgree, receiptHash),
			consensus.Plain(consensus.VoteAgree),
			consensus.Plain(consensus.VoteAgree),
			consensus.Plain(consensus.VoteDisagree),
			consensus.Plain(consensus.VoteTimeout),
		),
	}
	budget := fees.Budget{LeaderTimeout: 100, ValidatorsTimeout: 200, Sender: pool[6]}

	events1, labels1 := fees.ProcessTransaction(pool, rounds, budget)
	events2, labels2 := fees.ProcessTransaction(pool, rounds, budget)
	require.Equal(t, labels1, labels2)
	require.Equal(t, events1, events2)
}
