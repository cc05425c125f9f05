package fees

import (
	"fmt"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/labeling"
)

// distributor carries the context every per-label strategy needs: the
// adjusted rounds, the budget, the final label sequence for cross-round
// lookups, and the event log it appends to.
type distributor struct {
	rounds []consensus.Round
	budget Budget
	labels []labeling.Label
	log    *eventLog
}

func (d *distributor) distribute(i int) {
	switch d.labels[i] {
	case labeling.NormalRound:
		d.normalRound(i)
	case labeling.EmptyRound, labeling.SkipRound, labeling.LeaderTimeout:
		// A skipped round re-distributes through the appeal that voided
		// it; a non-final leader timeout settles through what follows.
	case labeling.AppealLeaderSuccessful, labeling.AppealLeaderTimeoutSuccessful:
		d.leaderAppealSuccessful(i)
	case labeling.AppealLeaderUnsuccessful, labeling.AppealLeaderTimeoutUnsuccessful:
		d.leaderAppealUnsuccessful(i)
	case labeling.AppealValidatorSuccessful:
		d.validatorAppealSuccessful(i)
	case labeling.AppealValidatorUnsuccessful:
		d.validatorAppealUnsuccessful(i)
	case labeling.LeaderTimeout50Percent:
		d.leaderTimeout50Percent(i)
	case labeling.LeaderTimeout150PreviousNormalRound:
		d.leaderTimeout150(i)
	case labeling.LeaderTimeout50PreviousAppealBond:
		d.leaderTimeout50PreviousBond(i)
	case labeling.SplitPreviousAppealBond:
		d.splitPreviousBond(i)
	default:
		panic(fmt.Sprintf("fees: round %d carries invalid label %d", i, d.labels[i]))
	}
}

// bondConsumedBySuccessor reports whether the bond of the unsuccessful
// appeal at round i is paid out by the round that follows it instead of
// being settled in the appeal round itself.
func (d *distributor) bondConsumedBySuccessor(i int) bool {
	if i+1 >= len(d.labels) {
		return false
	}
	next := d.labels[i+1]
	return next == labeling.SplitPreviousAppealBond ||
		next == labeling.LeaderTimeout50PreviousAppealBond
}

func (d *distributor) normalRound(i int) {
	rot := d.rounds[i].Last()
	leader, ok := rot.Leader()
	if !ok {
		return
	}
	label := d.labels[i]
	m := consensus.Tally(rot)

	if m == consensus.MajorityUndetermined {
		// No outcome to reward or punish: base compensation all around.
		d.log.emit(FeeEvent{
			Address: leader.Address, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleLeader, Vote: voteRef(leader.Vote),
			Earned: d.budget.LeaderTimeout,
		})
		for _, e := range rot.Entries[1:] {
			if !e.Vote.Kind.Countable() {
				continue
			}
			d.log.emit(FeeEvent{
				Address: e.Address, RoundIndex: roundRef(i), Label: labelRef(label),
				Role: RoleValidator, Vote: voteRef(e.Vote),
				Earned: d.budget.ValidatorsTimeout,
			})
		}
		return
	}

	d.log.emit(FeeEvent{
		Address: leader.Address, RoundIndex: roundRef(i), Label: labelRef(label),
		Role: RoleLeader, Vote: voteRef(leader.Vote),
		Earned: d.budget.LeaderTimeout + d.budget.ValidatorsTimeout,
	})
	d.rewardByVote(i, rot, m, d.budget.ValidatorsTimeout)
}

// rewardByVote pays every non-leader validator voting with the majority
// and burns the penalty for every countable vote against it, in seating
// order.
func (d *distributor) rewardByVote(i int, rot consensus.Rotation, m consensus.Majority, amount uint64) {
	label := d.labels[i]
	for _, e := range rot.Entries[1:] {
		if !e.Vote.Kind.Countable() {
			continue
		}
		ev := FeeEvent{
			Address: e.Address, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleValidator, Vote: voteRef(e.Vote),
		}
		if sameSide(e.Vote.Kind, m) {
			ev.Earned = amount
		} else {
			ev.Burned = PenaltyRewardCoefficient * d.budget.ValidatorsTimeout
		}
		d.log.emit(ev)
	}
}

func sameSide(k consensus.VoteKind, m consensus.Majority) bool {
	switch m {
	case consensus.MajorityAgree:
		return k == consensus.VoteAgree
	case consensus.MajorityDisagree:
		return k == consensus.VoteDisagree
	case consensus.MajorityTimeout:
		return k == consensus.VoteTimeout
	}
	return false
}

// leaderAppealSuccessful settles a successful appeal against a leader
// (receipt or timeout): the appellant recovers the bond plus one leader
// compensation. The re-election it forces distributes in its own round.
func (d *distributor) leaderAppealSuccessful(i int) {
	bond := AppealBond(d.budget, d.labels, i)
	d.log.emit(FeeEvent{
		Address: appealantFor(d.budget, d.labels, i), RoundIndex: roundRef(i),
		Label: labelRef(d.labels[i]), Role: RoleAppealant,
		Cost: bond, Earned: bond + d.budget.LeaderTimeout,
	})
}

// leaderAppealUnsuccessful forfeits the bond. When the following round is
// labeled to pay out of this bond, settlement moves there; otherwise the
// whole bond burns here.
func (d *distributor) leaderAppealUnsuccessful(i int) {
	bond := AppealBond(d.budget, d.labels, i)
	appealant := appealantFor(d.budget, d.labels, i)
	d.log.emit(FeeEvent{
		Address: appealant, RoundIndex: roundRef(i), Label: labelRef(d.labels[i]),
		Role: RoleAppealant, Cost: bond,
	})
	if d.bondConsumedBySuccessor(i) {
		return
	}
	d.log.emit(FeeEvent{
		Address: appealant, RoundIndex: roundRef(i), Label: labelRef(d.labels[i]),
		Role: RoleAppealant, Burned: bond,
	})
}

func (d *distributor) validatorAppealSuccessful(i int) {
	rot := d.rounds[i].Last()
	bond := AppealBond(d.budget, d.labels, i)
	d.log.emit(FeeEvent{
		Address: appealantFor(d.budget, d.labels, i), RoundIndex: roundRef(i),
		Label: labelRef(d.labels[i]), Role: RoleAppealant,
		Cost: bond, Earned: bond,
	})
	m := consensus.Tally(rot)
	label := d.labels[i]
	for _, e := range rot.Entries {
		if !e.Vote.Kind.Countable() {
			continue
		}
		ev := FeeEvent{
			Address: e.Address, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleValidator, Vote: voteRef(e.Vote),
		}
		if m == consensus.MajorityUndetermined || sameSide(e.Vote.Kind, m) {
			ev.Earned = d.budget.ValidatorsTimeout
		} else {
			ev.Burned = PenaltyRewardCoefficient * d.budget.ValidatorsTimeout
		}
		d.log.emit(ev)
	}
}

// validatorAppealUnsuccessful pays the appeal round's validators out of
// the forfeited bond and burns whatever the round does not distribute.
func (d *distributor) validatorAppealUnsuccessful(i int) {
	rot := d.rounds[i].Last()
	bond := AppealBond(d.budget, d.labels, i)
	appealant := appealantFor(d.budget, d.labels, i)
	label := d.labels[i]
	d.log.emit(FeeEvent{
		Address: appealant, RoundIndex: roundRef(i), Label: labelRef(label),
		Role: RoleAppealant, Cost: bond,
	})
	if d.bondConsumedBySuccessor(i) {
		return
	}
	var consumed uint64
	m := consensus.Tally(rot)
	for _, e := range rot.Entries {
		if !e.Vote.Kind.Countable() {
			continue
		}
		ev := FeeEvent{
			Address: e.Address, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleValidator, Vote: voteRef(e.Vote),
		}
		if m == consensus.MajorityUndetermined || sameSide(e.Vote.Kind, m) {
			ev.Earned = d.budget.ValidatorsTimeout
		} else {
			ev.Burned = PenaltyRewardCoefficient * d.budget.ValidatorsTimeout
		}
		consumed += ev.Earned + ev.Burned
		d.log.emit(ev)
	}
	if consumed > bond {
		panic(fmt.Sprintf("fees: appeal round %d distributed %d beyond its bond %d", i, consumed, bond))
	}
	if residue := bond - consumed; residue > 0 {
		d.log.emit(FeeEvent{
			Address: appealant, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleAppealant, Burned: residue,
		})
	}
}

func (d *distributor) leaderTimeout50Percent(i int) {
	rot := d.rounds[i].Last()
	leader, ok := rot.Leader()
	if !ok {
		return
	}
	d.log.emit(FeeEvent{
		Address: leader.Address, RoundIndex: roundRef(i), Label: labelRef(d.labels[i]),
		Role: RoleLeader, Vote: voteRef(leader.Vote),
		Earned: d.budget.LeaderTimeout / 2,
	})
}

func (d *distributor) leaderTimeout150(i int) {
	rot := d.rounds[i].Last()
	leader, ok := rot.Leader()
	if !ok {
		return
	}
	label := d.labels[i]
	d.log.emit(FeeEvent{
		Address: leader.Address, RoundIndex: roundRef(i), Label: labelRef(label),
		Role: RoleLeader, Vote: voteRef(leader.Vote),
		Earned: 3 * d.budget.LeaderTimeout / 2,
	})
	m := consensus.Tally(rot)
	if m == consensus.MajorityUndetermined {
		for _, e := range rot.Entries[1:] {
			if !e.Vote.Kind.Countable() {
				continue
			}
			d.log.emit(FeeEvent{
				Address: e.Address, RoundIndex: roundRef(i), Label: labelRef(label),
				Role: RoleValidator, Vote: voteRef(e.Vote),
				Earned: d.budget.ValidatorsTimeout,
			})
		}
		return
	}
	d.rewardByVote(i, rot, m, d.budget.ValidatorsTimeout)
}

// leaderTimeout50PreviousBond pays the leader of a timed-out re-election
// half a leader compensation out of the bond forfeited by the preceding
// unsuccessful timeout appeal, and burns the rest of that bond.
func (d *distributor) leaderTimeout50PreviousBond(i int) {
	rot := d.rounds[i].Last()
	label := d.labels[i]
	if i < 1 || !d.labels[i-1].IsUnsuccessfulAppeal() {
		panic(fmt.Sprintf("fees: round %d consumes a bond no prior appeal posted", i))
	}
	bond := AppealBond(d.budget, d.labels, i-1)
	appealant := appealantFor(d.budget, d.labels, i-1)

	var consumed uint64
	if leader, ok := rot.Leader(); ok {
		half := d.budget.LeaderTimeout / 2
		d.log.emit(FeeEvent{
			Address: leader.Address, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleLeader, Vote: voteRef(leader.Vote),
			Earned: half,
		})
		consumed = half
	}
	if residue := bond - consumed; residue > 0 {
		d.log.emit(FeeEvent{
			Address: appealant, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleAppealant, Burned: residue,
		})
	}
}

// splitPreviousBond distributes the bond forfeited by the preceding
// unsuccessful appeal: the leader takes one leader compensation, the
// validators split the remainder equally, and the floor-division dust
// burns so conservation stays exact.
func (d *distributor) splitPreviousBond(i int) {
	rot := d.rounds[i].Last()
	label := d.labels[i]
	if i < 1 || !d.labels[i-1].IsUnsuccessfulAppeal() {
		panic(fmt.Sprintf("fees: round %d consumes a bond no prior appeal posted", i))
	}
	bond := AppealBond(d.budget, d.labels, i-1)
	appealant := appealantFor(d.budget, d.labels, i-1)

	leader, ok := rot.Leader()
	if !ok {
		return
	}
	d.log.emit(FeeEvent{
		Address: leader.Address, RoundIndex: roundRef(i), Label: labelRef(label),
		Role: RoleLeader, Vote: voteRef(leader.Vote),
		Earned: d.budget.LeaderTimeout,
	})

	pool := bond - d.budget.LeaderTimeout
	var eligible []consensus.Entry
	for _, e := range rot.Entries[1:] {
		if e.Vote.Kind.Countable() {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		d.log.emit(FeeEvent{
			Address: appealant, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleAppealant, Burned: pool,
		})
		return
	}
	share := pool / uint64(len(eligible))
	for _, e := range eligible {
		d.log.emit(FeeEvent{
			Address: e.Address, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleValidator, Vote: voteRef(e.Vote),
			Earned: share,
		})
	}
	if dust := pool - share*uint64(len(eligible)); dust > 0 {
		d.log.emit(FeeEvent{
			Address: appealant, RoundIndex: roundRef(i), Label: labelRef(label),
			Role: RoleAppealant, Burned: dust,
		})
	}
}
