package pathgen

import (
	"fmt"

	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/crypto"
	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/labeling"
)

// BuildParams configures the path-to-transaction conversion.
type BuildParams struct {
	LeaderTimeout     uint64
	ValidatorsTimeout uint64
	// Pool supplies every address the transaction may seat. The last
	// address acts as the sender, the one before it as the appealant.
	Pool []consensus.Address
}

// builder tracks the seating state while a path is converted round by
// round.
type builder struct {
	params     BuildParams
	working    []consensus.Address
	nextUnused int

	cumulative  map[consensus.Address]bool
	prevLeaders map[consensus.Address]bool

	normalCount int
	appealCount int

	lastNormalMajority consensus.Majority
	receiptHash        crypto.Hash
}

// Build converts a START-to-END path into concrete rounds and the budget
// that authorizes them. The conversion is deterministic in the path and
// the pool.
func Build(path []Node, params BuildParams) ([]consensus.Round, fees.Budget) {
	if len(params.Pool) < 4 {
		panic("pathgen: pool too small")
	}
	sender := params.Pool[len(params.Pool)-1]
	appealant := params.Pool[len(params.Pool)-2]

	b := &builder{
		params:             params,
		working:            params.Pool[:len(params.Pool)-2],
		cumulative:         make(map[consensus.Address]bool),
		prevLeaders:        make(map[consensus.Address]bool),
		lastNormalMajority: consensus.MajorityUndetermined,
		receiptHash:        crypto.HashData([]byte("receipt")),
	}

	var rounds []consensus.Round
	var appeals []fees.Appeal
	for _, node := range path {
		switch {
		case node == Start || node == End:
		case node.IsAppeal():
			rounds = append(rounds, b.appealRound(node))
			appeals = append(appeals, fees.Appeal{Appealant: appealant})
		default:
			rounds = append(rounds, b.normalRound(node))
		}
	}

	budget := fees.Budget{
		LeaderTimeout:     params.LeaderTimeout,
		ValidatorsTimeout: params.ValidatorsTimeout,
		Appeals:           appeals,
		Sender:            sender,
		Staking:           fees.StakingConstant,
	}
	return rounds, budget
}

func (b *builder) fresh(n int) []consensus.Address {
	if b.nextUnused+n > len(b.working) {
		panic(fmt.Sprintf("pathgen: pool exhausted seating %d participants", n))
	}
	addrs := b.working[b.nextUnused : b.nextUnused+n]
	b.nextUnused += n
	return addrs
}

// seatNormal picks the participants of a normal round: the first round
// pulls fresh addresses, later rounds re-seat everyone already active
// except past leaders, topping up from the pool as the table size grows.
func (b *builder) seatNormal(size int) []consensus.Address {
	if b.normalCount == 0 {
		return append([]consensus.Address(nil), b.fresh(size)...)
	}
	var available []consensus.Address
	for a := range b.cumulative {
		if !b.prevLeaders[a] {
			available = append(available, a)
		}
	}
	consensus.SortAddresses(available)
	if len(available) >= size {
		return available[:size]
	}
	available = append(available, b.fresh(size-len(available))...)
	consensus.SortAddresses(available)
	return available
}

func (b *builder) normalRound(node Node) consensus.Round {
	size := labeling.NormalRoundSize(b.normalCount)
	addrs := b.seatNormal(size)

	var entries []consensus.Entry
	switch node {
	case LeaderReceiptMajorityAgree:
		entries = b.receiptEntries(addrs, consensus.VoteAgree)
	case LeaderReceiptMajorityDisagree:
		entries = b.receiptEntries(addrs, consensus.VoteDisagree)
	case LeaderReceiptMajorityTimeout:
		entries = b.receiptEntries(addrs, consensus.VoteTimeout)
	case LeaderReceiptUndetermined:
		entries = b.undeterminedEntries(addrs)
	case NodeLeaderTimeout:
		entries = b.timeoutEntries(addrs)
	default:
		panic(fmt.Sprintf("pathgen: %s is not a normal round node", node))
	}
	rot := consensus.Rotation{Entries: entries}

	for _, a := range addrs {
		b.cumulative[a] = true
	}
	b.prevLeaders[addrs[0]] = true
	b.normalCount++
	b.lastNormalMajority = consensus.Tally(rot)
	return consensus.Round{Rotations: []consensus.Rotation{rot}}
}

// receiptEntries builds a round whose tally lands on the given kind: the
// leader votes with the majority and just over half the seats side with
// it, the rest alternating over the two losing kinds.
func (b *builder) receiptEntries(addrs []consensus.Address, majority consensus.VoteKind) []consensus.Entry {
	size := len(addrs)
	entries := make([]consensus.Entry, size)
	entries[0] = consensus.Entry{
		Address: addrs[0],
		Vote:    consensus.Receipt(majority, b.receiptHash),
	}
	others := otherKinds(majority)
	majorityCount := size/2 + 1
	for i := 1; i < size; i++ {
		kind := majority
		if i >= majorityCount {
			kind = others[(i-majorityCount)%2]
		}
		entries[i] = consensus.Entry{Address: addrs[i], Vote: consensus.Plain(kind)}
	}
	return entries
}

func otherKinds(majority consensus.VoteKind) [2]consensus.VoteKind {
	switch majority {
	case consensus.VoteAgree:
		return [2]consensus.VoteKind{consensus.VoteDisagree, consensus.VoteTimeout}
	case consensus.VoteDisagree:
		return [2]consensus.VoteKind{consensus.VoteAgree, consensus.VoteTimeout}
	default:
		return [2]consensus.VoteKind{consensus.VoteAgree, consensus.VoteDisagree}
	}
}

// undeterminedEntries balances agree and disagree exactly so no kind holds
// a strict majority regardless of the round size.
func (b *builder) undeterminedEntries(addrs []consensus.Address) []consensus.Entry {
	size := len(addrs)
	entries := make([]consensus.Entry, size)
	entries[0] = consensus.Entry{
		Address: addrs[0],
		Vote:    consensus.Receipt(consensus.VoteAgree, b.receiptHash),
	}
	half := size / 2
	for i := 1; i < size; i++ {
		var kind consensus.VoteKind
		switch {
		case i < half: // leader already agrees
			kind = consensus.VoteAgree
		case i < 2*half:
			kind = consensus.VoteDisagree
		default:
			kind = consensus.VoteTimeout
		}
		entries[i] = consensus.Entry{Address: addrs[i], Vote: consensus.Plain(kind)}
	}
	return entries
}

func (b *builder) timeoutEntries(addrs []consensus.Address) []consensus.Entry {
	entries := make([]consensus.Entry, len(addrs))
	entries[0] = consensus.Entry{Address: addrs[0], Vote: consensus.TimedOut()}
	for i := 1; i < len(addrs); i++ {
		entries[i] = consensus.Entry{Address: addrs[i], Vote: consensus.Plain(consensus.VoteAgree)}
	}
	return entries
}

func (b *builder) appealRound(node Node) consensus.Round {
	size := labeling.AppealRoundSize(b.appealCount)
	addrs := append([]consensus.Address(nil), b.fresh(size)...)
	for _, a := range addrs {
		b.cumulative[a] = true
	}
	b.appealCount++

	entries := make([]consensus.Entry, size)
	switch node {
	case LeaderAppealSuccessful, LeaderAppealUnsuccessful,
		LeaderAppealTimeoutSuccessful, LeaderAppealTimeoutUnsuccessful:
		// Leader appeals take no vote.
		for i, a := range addrs {
			entries[i] = consensus.Entry{Address: a, Vote: consensus.Plain(consensus.VoteNotApplicable)}
		}
	case ValidatorAppealSuccessful:
		overturn := consensus.VoteDisagree
		rest := consensus.VoteAgree
		if b.lastNormalMajority == consensus.MajorityDisagree {
			overturn, rest = consensus.VoteAgree, consensus.VoteDisagree
		}
		majorityCount := size/2 + 1
		for i, a := range addrs {
			kind := overturn
			if i >= majorityCount {
				kind = rest
			}
			entries[i] = consensus.Entry{Address: a, Vote: consensus.Plain(kind)}
		}
	case ValidatorAppealUnsuccessful:
		switch b.lastNormalMajority {
		case consensus.MajorityAgree, consensus.MajorityDisagree:
			uphold := consensus.VoteAgree
			rest := consensus.VoteDisagree
			if b.lastNormalMajority == consensus.MajorityDisagree {
				uphold, rest = rest, uphold
			}
			majorityCount := size/2 + 1
			for i, a := range addrs {
				kind := uphold
				if i >= majorityCount {
					kind = rest
				}
				entries[i] = consensus.Entry{Address: a, Vote: consensus.Plain(kind)}
			}
		default:
			// A timed-out or undetermined outcome stands when the appeal
			// itself reaches no majority.
			half := size / 2
			for i, a := range addrs {
				var kind consensus.VoteKind
				switch {
				case i < half:
					kind = consensus.VoteAgree
				case i < 2*half:
					kind = consensus.VoteDisagree
				default:
					kind = consensus.VoteTimeout
				}
				entries[i] = consensus.Entry{Address: a, Vote: consensus.Plain(kind)}
			}
		}
	default:
		panic(fmt.Sprintf("pathgen: %s is not an appeal node", node))
	}
	return consensus.Round{Rotations: []consensus.Rotation{consensus.Rotation{Entries: entries}}}
}
