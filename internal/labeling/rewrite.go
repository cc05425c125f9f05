package labeling

import (
	"slices"

	"github.com/genledger/feesim/internal/consensus"
)

// rewrite resolves the contextual dependencies between labels in a single
// left-to-right pass. Rewrites are stated against the effective
// predecessor of an appeal, not the syntactic one, so chained appeals
// resolve against the round they actually contest.
func rewrite(prelim []Label, rounds []consensus.Round) []Label {
	labels := slices.Clone(prelim)
	for i := range labels {
		switch labels[i] {
		case AppealLeaderSuccessful, AppealValidatorSuccessful:
			// The contested round is retroactively voided.
			if p := EffectivePredecessor(labels, i); p >= 0 && labels[p] == NormalRound {
				labels[p] = SkipRound
			}
		case AppealLeaderTimeoutSuccessful:
			if p := EffectivePredecessor(labels, i); p >= 0 && labels[p] == LeaderTimeout {
				labels[p] = SkipRound
			}
			if i+1 < len(labels) && labels[i+1] == NormalRound {
				// The leader that steps up after a proven timeout earns a
				// premium.
				labels[i+1] = LeaderTimeout150PreviousNormalRound
			}
		case AppealLeaderUnsuccessful, AppealValidatorUnsuccessful:
			if i+1 < len(labels) && labels[i+1] == NormalRound &&
				consensus.Tally(rounds[i+1].Last()) == consensus.MajorityUndetermined {
				labels[i+1] = SplitPreviousAppealBond
			}
		case AppealLeaderTimeoutUnsuccessful:
			if i+1 < len(labels) && labels[i+1] == LeaderTimeout {
				labels[i+1] = LeaderTimeout50PreviousAppealBond
				if p := EffectivePredecessor(labels, i); p >= 0 && labels[p] == LeaderTimeout {
					labels[p] = LeaderTimeout50Percent
				}
			}
		}
	}
	return labels
}

// EffectivePredecessor returns the index of the nearest non-appeal round
// before i, walking backwards past any chain of appeals, or -1 when none
// exists.
func EffectivePredecessor(labels []Label, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !labels[j].IsAppeal() {
			return j
		}
	}
	return -1
}
