package fees

import (
	"github.com/genledger/feesim/internal/consensus"
	"github.com/genledger/feesim/internal/labeling"
)

// Role is the capacity in which an address appears in a fee event. The
// numeric values are the wire indices used by compressed path records.
type Role uint8

const (
	RoleLeader Role = iota
	RoleValidator
	RoleSender
	RoleAppealant
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "LEADER"
	case RoleValidator:
		return "VALIDATOR"
	case RoleSender:
		return "SENDER"
	case RoleAppealant:
		return "APPEALANT"
	default:
		return "UNKNOWN"
	}
}

// FeeEvent is one immutable accounting record for one participant in one
// round, or for a transaction-level flow (sender authorization, refund)
// when RoundIndex is nil. The four quantities are non-negative; StakedDelta
// is carried for forward compatibility and is always zero.
type FeeEvent struct {
	SequenceID  uint64
	Address     consensus.Address
	RoundIndex  *int
	Label       *labeling.Label
	Role        Role
	Vote        *consensus.Vote
	Earned      uint64
	Cost        uint64
	Burned      uint64
	Slashed     uint64
	StakedDelta int64
}

// eventLog assigns strictly increasing sequence ids in emission order.
type eventLog struct {
	nextSeq uint64
	events  []FeeEvent
}

func (l *eventLog) emit(ev FeeEvent) {
	l.nextSeq++
	ev.SequenceID = l.nextSeq
	l.events = append(l.events, ev)
}

func roundRef(i int) *int {
	return &i
}

func labelRef(l labeling.Label) *labeling.Label {
	return &l
}

func voteRef(v consensus.Vote) *consensus.Vote {
	return &v
}
