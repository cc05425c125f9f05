package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/crypto"
)

func rotation(votes ...Vote) Rotation {
	entries := make([]Entry, len(votes))
	for i, v := range votes {
		entries[i].Address[AddressSize-1] = byte(i + 1)
		entries[i].Vote = v
	}
	return Rotation{Entries: entries}
}

func Test_TallyClearMajority(t *testing.T) {
	rot := rotation(
		Receipt(VoteAgree, crypto.HashData([]byte("r"))),
		Plain(VoteAgree),
		Plain(VoteAgree),
		Plain(VoteDisagree),
		Plain(VoteTimeout),
	)
	require.Equal(t, MajorityAgree, Tally(rot))
}

func Test_TallyTie(t *testing.T) {
	rot := rotation(
		Plain(VoteAgree),
		Plain(VoteAgree),
		Plain(VoteDisagree),
		Plain(VoteDisagree),
		Plain(VoteTimeout),
	)
	require.Equal(t, MajorityUndetermined, Tally(rot))
}

func Test_TallyIgnoresIdleAndNA(t *testing.T) {
	rot := rotation(
		Plain(VoteDisagree),
		Plain(VoteIdle),
		Plain(VoteIdle),
		Plain(VoteIdle),
		Plain(VoteNotApplicable),
	)
	require.Equal(t, MajorityDisagree, Tally(rot))
}

func Test_TallyLeaderSelfVoteCounts(t *testing.T) {
	rot := rotation(
		Receipt(VoteDisagree, crypto.Hash{}),
		Plain(VoteAgree),
		Plain(VoteDisagree),
	)
	require.Equal(t, MajorityDisagree, Tally(rot))
}

func Test_TallyLeaderTimeoutExcluded(t *testing.T) {
	rot := rotation(
		TimedOut(),
		Plain(VoteAgree),
		Plain(VoteAgree),
	)
	require.Equal(t, MajorityAgree, Tally(rot))
}

func Test_Partition(t *testing.T) {
	rot := rotation(
		Receipt(VoteAgree, crypto.Hash{}),
		Plain(VoteAgree),
		Plain(VoteDisagree),
		Plain(VoteIdle),
		Plain(VoteTimeout),
	)
	majority, minority := Partition(rot, MajorityAgree)
	require.Len(t, majority, 2)
	require.Len(t, minority, 2)
	require.Equal(t, rot.Entries[0].Address, majority[0])
	require.Equal(t, rot.Entries[2].Address, minority[0])
}

func Test_PartitionUndetermined(t *testing.T) {
	rot := rotation(Plain(VoteAgree), Plain(VoteDisagree))
	majority, minority := Partition(rot, MajorityUndetermined)
	require.Nil(t, majority)
	require.Nil(t, minority)
}
