package consensus

// Majority is the outcome of tallying a rotation's countable votes.
type Majority uint8

const (
	MajorityUndetermined Majority = iota
	MajorityAgree
	MajorityDisagree
	MajorityTimeout
)

func (m Majority) String() string {
	switch m {
	case MajorityAgree:
		return "AGREE"
	case MajorityDisagree:
		return "DISAGREE"
	case MajorityTimeout:
		return "TIMEOUT"
	default:
		return "UNDETERMINED"
	}
}

func majorityOf(k VoteKind) Majority {
	switch k {
	case VoteAgree:
		return MajorityAgree
	case VoteDisagree:
		return MajorityDisagree
	case VoteTimeout:
		return MajorityTimeout
	default:
		return MajorityUndetermined
	}
}

// Tally counts a rotation's countable votes (leader self-votes included,
// idle and not-applicable excluded) and returns the unique strict winner,
// or MajorityUndetermined when there is none.
func Tally(rot Rotation) Majority {
	var agree, disagree, timeout int
	for _, e := range rot.Entries {
		switch e.Vote.Kind {
		case VoteAgree:
			agree++
		case VoteDisagree:
			disagree++
		case VoteTimeout:
			timeout++
		}
	}
	switch {
	case agree > disagree && agree > timeout:
		return MajorityAgree
	case disagree > agree && disagree > timeout:
		return MajorityDisagree
	case timeout > agree && timeout > disagree:
		return MajorityTimeout
	default:
		return MajorityUndetermined
	}
}

// Partition splits a rotation's participants into those voting with m and
// those voting against it, in seating order. Idle and not-applicable votes
// fall in neither set; an undetermined majority partitions nothing.
func Partition(rot Rotation, m Majority) (majority, minority []Address) {
	if m == MajorityUndetermined {
		return nil, nil
	}
	for _, e := range rot.Entries {
		if !e.Vote.Kind.Countable() {
			continue
		}
		if majorityOf(e.Vote.Kind) == m {
			majority = append(majority, e.Address)
		} else {
			minority = append(minority, e.Address)
		}
	}
	return majority, minority
}
