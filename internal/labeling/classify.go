package labeling

import (
	"github.com/genledger/feesim/internal/consensus"
)

// LabelRounds assigns each round its final label: a per-round content
// classification followed by contextual rewriting over the whole sequence.
func LabelRounds(rounds []consensus.Round) []Label {
	return rewrite(classify(rounds), rounds)
}

func classify(rounds []consensus.Round) []Label {
	labels := make([]Label, 0, len(rounds))
	for i, rd := range rounds {
		rot := rd.Last()
		switch {
		case rot.Empty():
			labels = append(labels, EmptyRound)
		case rot.LeaderAction() == consensus.LeaderTimedOut && len(rounds) == 1:
			labels = append(labels, LeaderTimeout50Percent)
		case appealShaped(rot):
			labels = append(labels, classifyAppeal(rounds, i))
		case rot.LeaderAction() == consensus.LeaderTimedOut:
			labels = append(labels, LeaderTimeout)
		default:
			labels = append(labels, NormalRound)
		}
	}
	return labels
}

// appealShaped recognizes appeal rounds by their vote pattern: leader
// appeals are all not-applicable, validator appeals carry agree/disagree
// votes without any leader action. A round whose leader timed out is never
// an appeal; a round whose leader submitted a receipt is one only when every
// vote in it, the leader's follow-up vote included, is not-applicable.
func appealShaped(rot consensus.Rotation) bool {
	if rot.Empty() || rot.LeaderAction() == consensus.LeaderTimedOut {
		return false
	}
	allNA := true
	for _, e := range rot.Entries {
		if e.Vote.Kind != consensus.VoteNotApplicable {
			allNA = false
			break
		}
	}
	if allNA {
		return true
	}
	if rot.LeaderAction() == consensus.LeaderReceipt {
		return false
	}
	for _, e := range rot.Entries {
		if e.Vote.Kind == consensus.VoteAgree || e.Vote.Kind == consensus.VoteDisagree {
			return true
		}
	}
	return false
}

// classifyAppeal labels the appeal at round i against the outcome of the
// round it contests. Chained appeals contest the nearest non-appeal round,
// so the walk skips any intermediate appeal rounds.
func classifyAppeal(rounds []consensus.Round, i int) Label {
	if i == 0 {
		// Appeals cannot open a transaction.
		return EmptyRound
	}
	orig := i - 1
	for orig > 0 && appealShaped(rounds[orig].Last()) {
		orig--
	}
	origRot := rounds[orig].Last()
	if origRot.LeaderAction() == consensus.LeaderTimedOut {
		return classifyTimeoutAppeal(rounds, i)
	}
	return classifyVoteAppeal(rounds, i, consensus.Tally(origRot))
}

// A timeout appeal succeeds when it forces a re-election that produces a
// leader willing to submit.
func classifyTimeoutAppeal(rounds []consensus.Round, i int) Label {
	if i+1 >= len(rounds) {
		return AppealLeaderTimeoutUnsuccessful
	}
	if rounds[i+1].Last().LeaderAction() == consensus.LeaderTimedOut {
		return AppealLeaderTimeoutUnsuccessful
	}
	return AppealLeaderTimeoutSuccessful
}

func classifyVoteAppeal(rounds []consensus.Round, i int, prevMajority consensus.Majority) Label {
	contested := prevMajority == consensus.MajorityUndetermined ||
		prevMajority == consensus.MajorityDisagree
	if contested {
		// Leader appeal: the submission itself is in dispute. Success is
		// decided by whether a clear, non-dissenting majority emerges in
		// the round that follows (or in the appeal itself when nothing
		// follows).
		decider := consensus.Tally(rounds[i].Last())
		if i+1 < len(rounds) {
			decider = consensus.Tally(rounds[i+1].Last())
		}
		if decider != consensus.MajorityUndetermined && decider != consensus.MajorityDisagree {
			return AppealLeaderSuccessful
		}
		return AppealLeaderUnsuccessful
	}
	// Validator appeal: succeeds only by overturning the prior outcome.
	appealMajority := consensus.Tally(rounds[i].Last())
	if appealMajority != prevMajority && appealMajority != consensus.MajorityUndetermined {
		return AppealValidatorSuccessful
	}
	return AppealValidatorUnsuccessful
}
