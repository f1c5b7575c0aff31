package folded

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"github.com/felixge/profileviewer/pkg/calltree"
)

func TestFolded(t *testing.T) {
	// Read the test tree.
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "two-roots.json"))
	require.NoError(t, err)
	tree, err := calltree.ParseBytes(data)
	require.NoError(t, err)

	// Convert the tree to folded stacks.
	var out bytes.Buffer
	require.NoError(t, Folded(tree, &out, Options{Metric: calltree.MetricExclusiveTime}))

	require.Equal(t, "main 500000\nmain;solve 2500000\nmain;solve;kernel 1000000\nMPI_Finalize 1500000\n", out.String())

	// Compare the output to the expected output.
	snaps.MatchSnapshot(t, out.String())
}

func TestFoldedInclusive(t *testing.T) {
	tree, err := calltree.FromString(`[
		{"name": "main", "metrics": {"time (inc)": 3},
		 "children": [{"name": "work a", "metrics": {"time (inc)": 2}}]},
		{"name": "main", "metrics": {"time (inc)": 1}}
	]`)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Folded(tree, &out, Options{Metric: calltree.MetricInclusiveTime, Scale: 1}))
	require.Equal(t, "main 2\nmain;work_a 2\n", out.String())
}

func TestFoldedNoSamples(t *testing.T) {
	tree, err := calltree.FromString(`[{"name": "main", "metrics": {"time": 1}}]`)
	require.NoError(t, err)

	var out bytes.Buffer
	require.Error(t, Folded(tree, &out, Options{Metric: "bytes"}))
}
