package testutils

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/genledger/feesim/internal/labeling"
)

// RequireLabels compares label sequences and renders a unified diff on
// mismatch, which reads far better than two long slices of constants.
func RequireLabels(t *testing.T, want, got []labeling.Label) {
	t.Helper()
	if len(want) == len(got) {
		equal := true
		for i := range want {
			if want[i] != got[i] {
				equal = false
				break
			}
		}
		if equal {
			return
		}
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        labelLines(want),
		B:        labelLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	require.NoError(t, err)
	t.Fatalf("label sequences differ:\n%s", diff)
}

func labelLines(labels []labeling.Label) []string {
	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = l.String() + "\n"
	}
	return lines
}
