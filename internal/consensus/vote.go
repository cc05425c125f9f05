package consensus

import "github.com/genledger/feesim/internal/crypto"

// VoteKind is the closed set of votes a participant can cast.
type VoteKind uint8

const (
	VoteAgree VoteKind = iota
	VoteDisagree
	VoteTimeout
	VoteIdle
	VoteNotApplicable
)

func (k VoteKind) String() string {
	switch k {
	case VoteAgree:
		return "AGREE"
	case VoteDisagree:
		return "DISAGREE"
	case VoteTimeout:
		return "TIMEOUT"
	case VoteIdle:
		return "IDLE"
	case VoteNotApplicable:
		return "NA"
	default:
		return "UNKNOWN"
	}
}

// Countable reports whether the kind participates in majority tallies.
func (k VoteKind) Countable() bool {
	return k == VoteAgree || k == VoteDisagree || k == VoteTimeout
}

// LeaderAction is what the round's leader submitted, if anything.
type LeaderAction uint8

const (
	NoLeaderAction LeaderAction = iota
	LeaderReceipt
	LeaderTimedOut
)

func (a LeaderAction) String() string {
	switch a {
	case LeaderReceipt:
		return "LEADER_RECEIPT"
	case LeaderTimedOut:
		return "LEADER_TIMEOUT"
	default:
		return ""
	}
}

// Vote is one participant's contribution to a rotation. A leader carries
// the action it took alongside the vote it casts on its own submission; a
// receipt additionally commits to the content hash validators echo.
type Vote struct {
	Kind    VoteKind
	Action  LeaderAction
	Content crypto.Hash
}

// Plain builds a validator vote with no attached content.
func Plain(kind VoteKind) Vote {
	return Vote{Kind: kind}
}

// WithContent builds a validator vote committing to a content hash.
func WithContent(kind VoteKind, content crypto.Hash) Vote {
	return Vote{Kind: kind, Content: content}
}

// Receipt builds a leader vote: the submitted result plus the leader's own
// follow-up vote on it.
func Receipt(follow VoteKind, content crypto.Hash) Vote {
	return Vote{Kind: follow, Action: LeaderReceipt, Content: content}
}

// TimedOut builds the vote of a leader that failed to submit.
func TimedOut() Vote {
	return Vote{Kind: VoteNotApplicable, Action: LeaderTimedOut}
}
