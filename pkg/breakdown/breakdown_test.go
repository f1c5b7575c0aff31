package breakdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixge/profileviewer/pkg/calltree"
)

func TestByName(t *testing.T) {
	// Read the test tree.
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "two-roots.json"))
	require.NoError(t, err)
	tree, err := calltree.ParseBytes(data)
	require.NoError(t, err)

	// Break down the tree by name.
	breakdown := ByName(tree)

	// Assert the number of names in the tree.
	require.Equal(t, 5, len(breakdown))
	// Assert the sum of all self times equals the sum of the root times.
	var self float64
	for _, summary := range breakdown {
		self += summary.Self
	}
	require.InDelta(t, 5.5, self, 1e-9)
	// Spot check of a name
	require.Equal(t, NameSummary{Name: "solve", Count: 1, Self: 2.5, Total: 3.5}, breakdown["solve"])
}

func TestByNameRecursion(t *testing.T) {
	tree, err := calltree.FromString(`[{
		"name": "fib", "metrics": {"time (inc)": 10},
		"children": [{
			"name": "fib", "metrics": {"time (inc)": 6},
			"children": [{"name": "fib", "metrics": {"time (inc)": 2}}]
		}, {
			"name": "log", "metrics": {"time (inc)": 1}
		}]
	}]`)
	require.NoError(t, err)

	breakdown := ByName(tree)
	fib := breakdown["fib"]
	require.Equal(t, int64(3), fib.Count)
	require.Equal(t, 10.0, fib.Total)
	// 10-6-1 + 6-2 + 2
	require.Equal(t, 9.0, fib.Self)
	require.Equal(t, 1.0, breakdown["log"].Self)
}
