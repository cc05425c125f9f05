package pathgen

import "github.com/genledger/feesim/internal/labeling"

// Node is one state of the transaction state machine. The numeric values
// are the wire indices used by compressed path records and must stay
// stable; new nodes append.
type Node uint8

const (
	Start Node = iota
	LeaderReceiptMajorityAgree
	LeaderReceiptUndetermined
	LeaderReceiptMajorityDisagree
	LeaderReceiptMajorityTimeout
	NodeLeaderTimeout
	ValidatorAppealSuccessful
	ValidatorAppealUnsuccessful
	LeaderAppealSuccessful
	LeaderAppealUnsuccessful
	LeaderAppealTimeoutSuccessful
	LeaderAppealTimeoutUnsuccessful
	End

	numNodes
)

// NumNodes is the size of the closed node set.
const NumNodes = int(numNodes)

func (n Node) String() string {
	switch n {
	case Start:
		return "START"
	case LeaderReceiptMajorityAgree:
		return "LEADER_RECEIPT_MAJORITY_AGREE"
	case LeaderReceiptUndetermined:
		return "LEADER_RECEIPT_UNDETERMINED"
	case LeaderReceiptMajorityDisagree:
		return "LEADER_RECEIPT_MAJORITY_DISAGREE"
	case LeaderReceiptMajorityTimeout:
		return "LEADER_RECEIPT_MAJORITY_TIMEOUT"
	case NodeLeaderTimeout:
		return "LEADER_TIMEOUT"
	case ValidatorAppealSuccessful:
		return "VALIDATOR_APPEAL_SUCCESSFUL"
	case ValidatorAppealUnsuccessful:
		return "VALIDATOR_APPEAL_UNSUCCESSFUL"
	case LeaderAppealSuccessful:
		return "LEADER_APPEAL_SUCCESSFUL"
	case LeaderAppealUnsuccessful:
		return "LEADER_APPEAL_UNSUCCESSFUL"
	case LeaderAppealTimeoutSuccessful:
		return "LEADER_APPEAL_TIMEOUT_SUCCESSFUL"
	case LeaderAppealTimeoutUnsuccessful:
		return "LEADER_APPEAL_TIMEOUT_UNSUCCESSFUL"
	case End:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// IsAppeal reports whether the node represents an appeal round.
func (n Node) IsAppeal() bool {
	return n >= ValidatorAppealSuccessful && n <= LeaderAppealTimeoutUnsuccessful
}

// transitions is the round state machine: which round kinds may follow
// which. Unsuccessful appeals restrict what comes next far more than
// successful ones.
var transitions = map[Node][]Node{
	Start: {
		LeaderReceiptMajorityAgree,
		LeaderReceiptUndetermined,
		LeaderReceiptMajorityDisagree,
		LeaderReceiptMajorityTimeout,
		NodeLeaderTimeout,
	},
	LeaderReceiptMajorityAgree: {
		ValidatorAppealSuccessful,
		ValidatorAppealUnsuccessful,
		End,
	},
	LeaderReceiptUndetermined: {
		LeaderAppealSuccessful,
		LeaderAppealUnsuccessful,
		End,
	},
	LeaderReceiptMajorityDisagree: {
		LeaderAppealSuccessful,
		LeaderAppealUnsuccessful,
		End,
	},
	LeaderReceiptMajorityTimeout: {
		ValidatorAppealSuccessful,
		ValidatorAppealUnsuccessful,
		End,
	},
	NodeLeaderTimeout: {
		LeaderAppealTimeoutSuccessful,
		LeaderAppealTimeoutUnsuccessful,
		End,
	},
	ValidatorAppealSuccessful: {
		LeaderReceiptMajorityAgree,
		LeaderReceiptUndetermined,
		LeaderReceiptMajorityDisagree,
		LeaderReceiptMajorityTimeout,
		NodeLeaderTimeout,
		End,
	},
	LeaderAppealSuccessful: {
		LeaderReceiptMajorityAgree,
		LeaderReceiptMajorityDisagree,
		LeaderReceiptMajorityTimeout,
		NodeLeaderTimeout,
	},
	LeaderAppealTimeoutSuccessful: {
		LeaderReceiptMajorityAgree,
		LeaderReceiptUndetermined,
		LeaderReceiptMajorityDisagree,
		LeaderReceiptMajorityTimeout,
	},
	ValidatorAppealUnsuccessful: {
		ValidatorAppealSuccessful,
		ValidatorAppealUnsuccessful,
		End,
	},
	LeaderAppealUnsuccessful: {
		LeaderReceiptUndetermined,
	},
	LeaderAppealTimeoutUnsuccessful: {
		NodeLeaderTimeout,
	},
	End: nil,
}

// Transitions returns the successors of n.
func Transitions(n Node) []Node {
	return transitions[n]
}

// ExpectedLabel maps a node to the label its round is expected to carry
// before contextual rewriting.
func (n Node) ExpectedLabel() (labeling.Label, bool) {
	switch n {
	case LeaderReceiptMajorityAgree, LeaderReceiptUndetermined,
		LeaderReceiptMajorityDisagree, LeaderReceiptMajorityTimeout:
		return labeling.NormalRound, true
	case NodeLeaderTimeout:
		return labeling.LeaderTimeout, true
	case ValidatorAppealSuccessful:
		return labeling.AppealValidatorSuccessful, true
	case ValidatorAppealUnsuccessful:
		return labeling.AppealValidatorUnsuccessful, true
	case LeaderAppealSuccessful:
		return labeling.AppealLeaderSuccessful, true
	case LeaderAppealUnsuccessful:
		return labeling.AppealLeaderUnsuccessful, true
	case LeaderAppealTimeoutSuccessful:
		return labeling.AppealLeaderTimeoutSuccessful, true
	case LeaderAppealTimeoutUnsuccessful:
		return labeling.AppealLeaderTimeoutUnsuccessful, true
	}
	return 0, false
}

// Paths enumerates every START-to-END path with at most maxRounds rounds
// between the terminals, in depth-first successor order.
func Paths(maxRounds int) [][]Node {
	var out [][]Node
	var walk func(path []Node)
	walk = func(path []Node) {
		current := path[len(path)-1]
		if current == End {
			out = append(out, append([]Node(nil), path...))
			return
		}
		for _, next := range transitions[current] {
			if next != End && len(path)-1 >= maxRounds {
				continue
			}
			walk(append(path, next))
		}
	}
	walk([]Node{Start})
	return out
}
