package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"linked_list", "flags", "pair_json"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, mustLoad(t, name)))
		})
	}
}

func TestRunWithGolden_FailedAssertions(t *testing.T) {
	s := mustLoad(t, "linked_list")
	s.Assertions = []Assertion{{Type: AssertEmitted, Names: []string{"list"}}}

	err := RunWithGolden(t, s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "scenario linked_list failed")
}
