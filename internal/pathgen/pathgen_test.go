package pathgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/fees"
	"github.com/genledger/feesim/internal/invariants"
	"github.com/genledger/feesim/internal/labeling"
	"github.com/genledger/feesim/internal/pathgen"
)

func Test_PathsAreTerminated(t *testing.T) {
	paths := pathgen.Paths(3)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		require.Equal(t, pathgen.Start, p[0])
		require.Equal(t, pathgen.End, p[len(p)-1])
		require.LessOrEqual(t, len(p)-2, 3)
	}
}

func Test_PathsSingleRound(t *testing.T) {
	paths := pathgen.Paths(1)
	// Each opening round kind that may terminate immediately.
	require.Len(t, paths, 5)
}

func Test_PathsGrowMonotonically(t *testing.T) {
	require.Greater(t, len(pathgen.Paths(4)), len(pathgen.Paths(3)))
}

func Test_BuildSeatsTableSizes(t *testing.T) {
	path := []pathgen.Node{
		pathgen.Start,
		pathgen.LeaderReceiptMajorityAgree,
		pathgen.ValidatorAppealSuccessful,
		pathgen.LeaderReceiptMajorityDisagree,
		pathgen.End,
	}
	pool := pathgen.AddressPool(pathgen.RequiredPool(3))
	rounds, budget := pathgen.Build(path, pathgen.BuildParams{
		LeaderTimeout:     100,
		ValidatorsTimeout: 200,
		Pool:              pool,
	})
	require.Len(t, rounds, 3)
	require.Len(t, rounds[0].Last().Entries, 5)
	require.Len(t, rounds[1].Last().Entries, 7)
	require.Len(t, rounds[2].Last().Entries, 11)
	require.Len(t, budget.Appeals, 1)
}

func Test_BuildExcludesOustedLeader(t *testing.T) {
	path := []pathgen.Node{
		pathgen.Start,
		pathgen.LeaderReceiptMajorityAgree,
		pathgen.ValidatorAppealSuccessful,
		pathgen.LeaderReceiptMajorityAgree,
		pathgen.End,
	}
	pool := pathgen.AddressPool(pathgen.RequiredPool(3))
	rounds, _ := pathgen.Build(path, pathgen.BuildParams{
		LeaderTimeout:     100,
		ValidatorsTimeout: 200,
		Pool:              pool,
	})
	ousted := rounds[0].Last().Entries[0].Address
	_, seated := rounds[2].Last().Vote(ousted)
	require.False(t, seated)
}

// Every enumerated path must process into a transaction on which all 22
// invariants hold.
func Test_AllPathsSatisfyInvariants(t *testing.T) {
	const maxRounds = 5
	pool := pathgen.AddressPool(pathgen.RequiredPool(maxRounds))
	registry := invariants.NewRegistry()

	for _, path := range pathgen.Paths(maxRounds) {
		rounds, budget := pathgen.Build(path, pathgen.BuildParams{
			LeaderTimeout:     100,
			ValidatorsTimeout: 200,
			Pool:              pool,
		})
		st := fees.Process(pool, rounds, budget)
		require.Len(t, st.Labels, len(rounds))
		for _, l := range st.Labels {
			require.True(t, l.Valid())
		}
		violations := registry.CheckAll(st)
		require.Empty(t, violations, "path %v: %+v", path, violations)
	}
}

func Test_BuildIsDeterministic(t *testing.T) {
	paths := pathgen.Paths(4)
	pool := pathgen.AddressPool(pathgen.RequiredPool(4))
	params := pathgen.BuildParams{LeaderTimeout: 100, ValidatorsTimeout: 200, Pool: pool}
	for _, path := range paths {
		r1, b1 := pathgen.Build(path, params)
		r2, b2 := pathgen.Build(path, params)
		require.Equal(t, r1, r2)
		require.Equal(t, b1, b2)
	}
}

func Test_ExpectedLabelsBeforeRewriting(t *testing.T) {
	path := []pathgen.Node{
		pathgen.Start,
		pathgen.LeaderReceiptMajorityAgree,
		pathgen.ValidatorAppealUnsuccessful,
		pathgen.End,
	}
	pool := pathgen.AddressPool(pathgen.RequiredPool(2))
	rounds, _ := pathgen.Build(path, pathgen.BuildParams{
		LeaderTimeout:     100,
		ValidatorsTimeout: 200,
		Pool:              pool,
	})
	// Rewriting changes nothing on this path, so the final labels are the
	// ones the nodes carry before rewriting.
	labels := labeling.LabelRounds(rounds)
	require.Equal(t, labeling.NormalRound, labels[0])
	require.Equal(t, labeling.AppealValidatorUnsuccessful, labels[1])
}
