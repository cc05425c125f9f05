package invariants

import (
	"fmt"
	"math"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/labeling"
)

// definitions lists every protocol invariant in bit order. The positions
// are persisted in path records and must stay stable.
var definitions = []rule{
	{0, "conservation_of_value", GroupFinancial, SeverityCritical, checkConservation},
	{1, "non_negative_balances", GroupFairness, SeverityHigh, checkNonNegativeBalances},
	{2, "appeal_bond_coverage", GroupFinancial, SeverityHigh, checkAppealBondCoverage},
	{3, "majority_minority_consistency", GroupFinancial, SeverityHigh, checkMajorityMinority},
	{4, "role_exclusivity", GroupFairness, SeverityHigh, checkRoleExclusivity},
	{5, "sequential_processing", GroupPerformance, SeverityLow, checkSequentialProcessing},
	{6, "appeal_follows_normal", GroupFairness, SeverityHigh, checkAppealFollowsNormal},
	{7, "burn_non_negativity", GroupFinancial, SeverityMedium, checkBurnNonNegativity},
	{8, "refund_non_negativity", GroupFinancial, SeverityHigh, checkRefundNonNegativity},
	{9, "vote_consistency", GroupState, SeverityMedium, checkVoteConsistency},
	{10, "idle_slashing_correctness", GroupFairness, SeverityHigh, checkIdleSlashing},
	{11, "deterministic_violation_slashing", GroupFairness, SeverityHigh, checkViolationSlashing},
	{12, "leader_timeout_earning_limits", GroupFinancial, SeverityMedium, checkLeaderTimeoutEarnings},
	{13, "appeal_bond_consistency", GroupFinancial, SeverityHigh, checkAppealBondConsistency},
	{14, "round_size_consistency", GroupState, SeverityMedium, checkRoundSizes},
	{15, "fee_event_ordering", GroupPerformance, SeverityLow, checkEventOrdering},
	{16, "stake_immutability", GroupState, SeverityHigh, checkStakeImmutability},
	{17, "round_label_validity", GroupState, SeverityCritical, checkLabelValidity},
	{18, "no_double_penalties", GroupFairness, SeverityMedium, checkNoDoublePenalties},
	{19, "earning_justification", GroupFinancial, SeverityHigh, checkEarningJustification},
	{20, "cost_accounting", GroupFinancial, SeverityCritical, checkCostAccounting},
	{21, "slashing_proportionality", GroupFairness, SeverityHigh, checkSlashingProportionality},
}

func checkConservation(r *rule, st *fees.State) *Violation {
	t := fees.Totals(st.Events)
	if t.Cost != t.Earned+t.Burned {
		return r.fail(
			fmt.Sprintf("total costs %d != earnings %d + burns %d", t.Cost, t.Earned, t.Burned),
			map[string]int64{
				"total_costs":    int64(t.Cost),
				"total_earnings": int64(t.Earned),
				"total_burns":    int64(t.Burned),
				"refund":         int64(st.Refund),
			})
	}
	return nil
}

func checkNonNegativeBalances(r *rule, st *fees.State) *Violation {
	addrs, totals := fees.Balances(st)
	for _, a := range addrs {
		if a == st.Budget.Sender {
			// The sender's outlay is the authorized budget by definition.
			continue
		}
		if b := totals[a].Balance(); b < 0 {
			return r.fail(
				fmt.Sprintf("address %s has negative balance %d", a.Hex(), b),
				map[string]int64{"balance": b, "stake": int64(st.Stake)})
		}
	}
	return nil
}

// appealantCost returns the bond cost the appellant paid at round i, if
// any.
func appealantCost(st *fees.State, i int) (uint64, bool) {
	for _, ev := range st.Events {
		if ev.RoundIndex != nil && *ev.RoundIndex == i && ev.Role == fees.RoleAppealant && ev.Cost > 0 {
			return ev.Cost, true
		}
	}
	return 0, false
}

func checkAppealBondCoverage(r *rule, st *fees.State) *Violation {
	for i, l := range st.Labels {
		if !l.IsAppeal() {
			continue
		}
		required := fees.AppealBond(st.Budget, st.Labels, i)
		cost, ok := appealantCost(st, i)
		if !ok {
			return r.fail(
				fmt.Sprintf("appeal at round %d posted no bond", i),
				map[string]int64{"round": int64(i), "required": int64(required)})
		}
		if cost < required {
			return r.fail(
				fmt.Sprintf("bond %d at round %d does not cover the round cost %d", cost, i, required),
				map[string]int64{"round": int64(i), "bond": int64(cost), "required": int64(required)})
		}
	}
	return nil
}

func checkMajorityMinority(r *rule, st *fees.State) *Violation {
	for i, l := range st.Labels {
		if l != labeling.NormalRound {
			continue
		}
		rot := st.Rounds[i].Last()
		m := consensus.Tally(rot)
		if m == consensus.MajorityUndetermined {
			continue
		}
		_, minority := consensus.Partition(rot, m)
		// The leader is compensated separately and never burns here.
		minorityValidators := 0
		if leader, ok := rot.Leader(); ok {
			for _, a := range minority {
				if a != leader.Address {
					minorityValidators++
				}
			}
		}
		expected := uint64(fees.PenaltyRewardCoefficient) * uint64(minorityValidators) * st.Budget.ValidatorsTimeout
		var actual uint64
		for _, ev := range st.Events {
			if ev.RoundIndex != nil && *ev.RoundIndex == i && ev.Role == fees.RoleValidator {
				actual += ev.Burned
			}
		}
		if actual != expected {
			return r.fail(
				fmt.Sprintf("round %d minority burns %d != expected %d", i, actual, expected),
				map[string]int64{
					"round":     int64(i),
					"actual":    int64(actual),
					"expected":  int64(expected),
					"minority":  int64(minorityValidators),
				})
		}
	}
	return nil
}

func checkRoleExclusivity(r *rule, st *fees.State) *Violation {
	type key struct {
		round int
		addr  consensus.Address
	}
	leaders := make(map[key]bool)
	validators := make(map[key]bool)
	for _, ev := range st.Events {
		if ev.RoundIndex == nil {
			continue
		}
		k := key{*ev.RoundIndex, ev.Address}
		switch ev.Role {
		case fees.RoleLeader:
			leaders[k] = true
		case fees.RoleValidator:
			validators[k] = true
		}
	}
	for k := range leaders {
		if validators[k] {
			return r.fail(
				fmt.Sprintf("address %s is both leader and validator in round %d", k.addr.Hex(), k.round),
				map[string]int64{"round": int64(k.round)})
		}
	}
	return nil
}

func checkSequentialProcessing(r *rule, st *fees.State) *Violation {
	last := -1
	for _, ev := range st.Events {
		if ev.RoundIndex == nil {
			continue
		}
		if *ev.RoundIndex < last {
			return r.fail(
				fmt.Sprintf("round %d processed after round %d", *ev.RoundIndex, last),
				map[string]int64{"round": int64(*ev.RoundIndex), "previous": int64(last)})
		}
		last = *ev.RoundIndex
	}
	return nil
}

func checkAppealFollowsNormal(r *rule, st *fees.State) *Violation {
	for i, l := range st.Labels {
		if !l.IsAppeal() {
			continue
		}
		if labeling.EffectivePredecessor(st.Labels, i) < 0 {
			return r.fail(
				fmt.Sprintf("appeal %s at round %d contests nothing", l, i),
				map[string]int64{"round": int64(i)})
		}
	}
	return nil
}

func checkBurnNonNegativity(r *rule, st *fees.State) *Violation {
	for _, ev := range st.Events {
		if ev.Burned > math.MaxInt64 || ev.Earned > math.MaxInt64 ||
			ev.Cost > math.MaxInt64 || ev.Slashed > math.MaxInt64 {
			return r.fail(
				fmt.Sprintf("event %d carries a quantity outside the representable range", ev.SequenceID),
				map[string]int64{"sequence_id": int64(ev.SequenceID)})
		}
	}
	return nil
}

func checkRefundNonNegativity(r *rule, st *fees.State) *Violation {
	var senderCost, senderEarned uint64
	for _, ev := range st.Events {
		if ev.Address == st.Budget.Sender {
			senderCost += ev.Cost
			senderEarned += ev.Earned
		}
	}
	if senderEarned != st.Refund {
		return r.fail(
			fmt.Sprintf("refund events total %d but computed refund is %d", senderEarned, st.Refund),
			map[string]int64{"refunded": int64(senderEarned), "computed": int64(st.Refund)})
	}
	if st.Refund > senderCost {
		return r.fail(
			fmt.Sprintf("refund %d exceeds sender outlay %d", st.Refund, senderCost),
			map[string]int64{"refund": int64(st.Refund), "outlay": int64(senderCost)})
	}
	return nil
}

func checkVoteConsistency(r *rule, st *fees.State) *Violation {
	for _, ev := range st.Events {
		if ev.Vote == nil || ev.RoundIndex == nil || ev.Slashed > 0 {
			// Slash events reference the seat as it was before idle
			// replacement.
			continue
		}
		rot := st.Rounds[*ev.RoundIndex].Last()
		v, ok := rot.Vote(ev.Address)
		if !ok || v != *ev.Vote {
			return r.fail(
				fmt.Sprintf("event %d vote does not match round %d", ev.SequenceID, *ev.RoundIndex),
				map[string]int64{"sequence_id": int64(ev.SequenceID), "round": int64(*ev.RoundIndex)})
		}
	}
	return nil
}

func checkIdleSlashing(r *rule, st *fees.State) *Violation {
	expected := uint64(fees.IdlePenaltyCoefficient) * st.Stake
	var want int
	for _, s := range st.Slashes {
		if s.Vote.Kind == consensus.VoteIdle {
			want++
		}
	}
	var got int
	for _, ev := range st.Events {
		if ev.Slashed == 0 || ev.Vote == nil || ev.Vote.Kind != consensus.VoteIdle {
			continue
		}
		got++
		if ev.Slashed != expected {
			return r.fail(
				fmt.Sprintf("idle slash %d != %d for %s", ev.Slashed, expected, ev.Address.Hex()),
				map[string]int64{"slashed": int64(ev.Slashed), "expected": int64(expected)})
		}
	}
	if got != want {
		return r.fail(
			fmt.Sprintf("%d idle validators but %d idle slash events", want, got),
			map[string]int64{"idle": int64(want), "slashes": int64(got)})
	}
	return nil
}

func checkViolationSlashing(r *rule, st *fees.State) *Violation {
	expected := uint64(fees.DeterministicViolationPenaltyCoefficient) * st.Stake
	for _, ev := range st.Events {
		if ev.Slashed == 0 || (ev.Vote != nil && ev.Vote.Kind == consensus.VoteIdle) {
			continue
		}
		if ev.Slashed != expected {
			return r.fail(
				fmt.Sprintf("violation slash %d != %d for %s", ev.Slashed, expected, ev.Address.Hex()),
				map[string]int64{"slashed": int64(ev.Slashed), "expected": int64(expected)})
		}
	}
	return nil
}

func checkLeaderTimeoutEarnings(r *rule, st *fees.State) *Violation {
	for i, l := range st.Labels {
		var limit uint64
		switch l {
		case labeling.LeaderTimeout, labeling.LeaderTimeout50Percent, labeling.LeaderTimeout50PreviousAppealBond:
			limit = st.Budget.LeaderTimeout
		case labeling.LeaderTimeout150PreviousNormalRound:
			limit = 3 * st.Budget.LeaderTimeout / 2
		default:
			continue
		}
		for _, ev := range st.Events {
			if ev.RoundIndex != nil && *ev.RoundIndex == i && ev.Role == fees.RoleLeader && ev.Earned > limit {
				return r.fail(
					fmt.Sprintf("leader earned %d in round %d, limit %d", ev.Earned, i, limit),
					map[string]int64{"round": int64(i), "earned": int64(ev.Earned), "limit": int64(limit)})
			}
		}
	}
	return nil
}

func checkAppealBondConsistency(r *rule, st *fees.State) *Violation {
	for i, l := range st.Labels {
		if !l.IsAppeal() {
			continue
		}
		expected := fees.AppealBond(st.Budget, st.Labels, i)
		if cost, ok := appealantCost(st, i); ok && cost != expected {
			return r.fail(
				fmt.Sprintf("bond %d at round %d != table bond %d", cost, i, expected),
				map[string]int64{"round": int64(i), "bond": int64(cost), "expected": int64(expected)})
		}
	}
	return nil
}

func checkRoundSizes(r *rule, st *fees.State) *Violation {
	for i, l := range st.Labels {
		if l == labeling.EmptyRound {
			continue
		}
		seen := make(map[consensus.Address]bool)
		for _, e := range st.Rounds[i].Last().Entries {
			seen[e.Address] = true
		}
		expected := labeling.RoundSize(st.Labels, i)
		if len(seen) != expected {
			return r.fail(
				fmt.Sprintf("round %d seats %d participants, table says %d", i, len(seen), expected),
				map[string]int64{"round": int64(i), "actual": int64(len(seen)), "expected": int64(expected)})
		}
	}
	return nil
}

func checkEventOrdering(r *rule, st *fees.State) *Violation {
	var last uint64
	for _, ev := range st.Events {
		if ev.SequenceID <= last {
			return r.fail(
				fmt.Sprintf("sequence id %d after %d", ev.SequenceID, last),
				map[string]int64{"sequence_id": int64(ev.SequenceID), "previous": int64(last)})
		}
		last = ev.SequenceID
	}
	return nil
}

func checkStakeImmutability(r *rule, st *fees.State) *Violation {
	for _, ev := range st.Events {
		if ev.StakedDelta != 0 {
			return r.fail(
				fmt.Sprintf("event %d moves stake by %d", ev.SequenceID, ev.StakedDelta),
				map[string]int64{"sequence_id": int64(ev.SequenceID), "staked_delta": ev.StakedDelta})
		}
	}
	return nil
}

func checkLabelValidity(r *rule, st *fees.State) *Violation {
	if len(st.Labels) != len(st.Rounds) {
		return r.fail(
			fmt.Sprintf("%d rounds carry %d labels", len(st.Rounds), len(st.Labels)),
			map[string]int64{"rounds": int64(len(st.Rounds)), "labels": int64(len(st.Labels))})
	}
	appeals := 0
	for i, l := range st.Labels {
		if !l.Valid() {
			return r.fail(
				fmt.Sprintf("round %d carries label %d outside the closed set", i, l),
				map[string]int64{"round": int64(i), "label": int64(l)})
		}
		if l.IsAppeal() {
			appeals++
		}
	}
	if appeals != len(st.Budget.Appeals) {
		return r.fail(
			fmt.Sprintf("%d appeal rounds but budget authorizes %d", appeals, len(st.Budget.Appeals)),
			map[string]int64{"labeled": int64(appeals), "budgeted": int64(len(st.Budget.Appeals))})
	}
	return nil
}

func checkNoDoublePenalties(r *rule, st *fees.State) *Violation {
	for _, ev := range st.Events {
		if ev.Burned > 0 && ev.Slashed > 0 {
			return r.fail(
				fmt.Sprintf("event %d both burns and slashes", ev.SequenceID),
				map[string]int64{"sequence_id": int64(ev.SequenceID)})
		}
	}
	return nil
}

// Labels under which each role can legitimately earn.
func leaderMayEarn(l labeling.Label) bool {
	switch l {
	case labeling.NormalRound, labeling.LeaderTimeout50Percent,
		labeling.LeaderTimeout150PreviousNormalRound,
		labeling.LeaderTimeout50PreviousAppealBond,
		labeling.SplitPreviousAppealBond:
		return true
	}
	return false
}

func validatorMayEarn(l labeling.Label) bool {
	switch l {
	case labeling.NormalRound, labeling.AppealValidatorSuccessful,
		labeling.AppealValidatorUnsuccessful,
		labeling.LeaderTimeout150PreviousNormalRound,
		labeling.SplitPreviousAppealBond:
		return true
	}
	return false
}

func checkEarningJustification(r *rule, st *fees.State) *Violation {
	for _, ev := range st.Events {
		if ev.Earned == 0 {
			continue
		}
		ok := false
		switch ev.Role {
		case fees.RoleSender:
			ok = ev.RoundIndex == nil
		case fees.RoleAppealant:
			ok = ev.Label != nil && ev.Label.IsSuccessfulAppeal()
		case fees.RoleLeader:
			ok = ev.Label != nil && leaderMayEarn(*ev.Label)
		case fees.RoleValidator:
			ok = ev.Label != nil && validatorMayEarn(*ev.Label)
		}
		if !ok {
			return r.fail(
				fmt.Sprintf("event %d earns %d without a role-appropriate cause", ev.SequenceID, ev.Earned),
				map[string]int64{"sequence_id": int64(ev.SequenceID), "earned": int64(ev.Earned)})
		}
	}
	return nil
}

func checkCostAccounting(r *rule, st *fees.State) *Violation {
	expected := fees.TotalCost(st.Budget, st.Rounds)
	for i, l := range st.Labels {
		if l.IsAppeal() {
			expected += fees.AppealBond(st.Budget, st.Labels, i)
		}
	}
	var actual uint64
	for _, ev := range st.Events {
		actual += ev.Cost
	}
	if actual != expected {
		return r.fail(
			fmt.Sprintf("costs total %d, sender outlay plus bonds is %d", actual, expected),
			map[string]int64{"actual": int64(actual), "expected": int64(expected)})
	}
	return nil
}

func checkSlashingProportionality(r *rule, st *fees.State) *Violation {
	for _, ev := range st.Events {
		if ev.Slashed == 0 {
			continue
		}
		coeff := uint64(fees.DeterministicViolationPenaltyCoefficient)
		if ev.Vote != nil && ev.Vote.Kind == consensus.VoteIdle {
			coeff = fees.IdlePenaltyCoefficient
		}
		if ev.Slashed != coeff*st.Stake {
			return r.fail(
				fmt.Sprintf("slash %d is not %d times the stake %d", ev.Slashed, coeff, st.Stake),
				map[string]int64{"slashed": int64(ev.Slashed), "coefficient": int64(coeff), "stake": int64(st.Stake)})
		}
	}
	return nil
}
