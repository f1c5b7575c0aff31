package print

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixge/profileviewer/pkg/calltree"
)

func TestTree(t *testing.T) {
	t.Run("Default Filter", func(t *testing.T) {
		out := tree(t, Options{Metric: calltree.MetricInclusiveTime}, DefaultFilter())
		snaps.MatchSnapshot(t, out)

		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		require.Equal(t, 5, len(lines))
		assert.Equal(t, "4.0000 main src/main.c:10 [hot]", lines[0])
		assert.Equal(t, "  3.5000 solve src/solve.c:42 [hot]", lines[1])
		assert.Equal(t, "    1.0000 kernel src/solve.c:57 [hot]", lines[2])
		assert.Equal(t, "  0.0000 io_read", lines[3])
		assert.Equal(t, "1.5000 MPI_Finalize /opt/mpi/lib/finalize.c:7", lines[4])
	})

	t.Run("Depth Filter", func(t *testing.T) {
		f := DefaultFilter()
		f.MaxDepth = 0
		out := tree(t, Options{Metric: calltree.MetricInclusiveTime}, f)
		assert.True(t, strings.Contains(out, "main"))
		assert.True(t, strings.Contains(out, "MPI_Finalize"))
		assert.False(t, strings.Contains(out, "solve"))
	})

	t.Run("Value Filter", func(t *testing.T) {
		f := DefaultFilter()
		f.MinValue = 1.2
		out := tree(t, Options{Metric: calltree.MetricInclusiveTime}, f)
		assert.True(t, strings.Contains(out, "solve"))
		assert.False(t, strings.Contains(out, "kernel"))
		assert.False(t, strings.Contains(out, "io_read"))
	})

	t.Run("Hot Path Filter", func(t *testing.T) {
		f := DefaultFilter()
		f.HotPathOnly = true
		out := tree(t, Options{Metric: calltree.MetricInclusiveTime}, f)
		assert.True(t, strings.Contains(out, "kernel"))
		assert.False(t, strings.Contains(out, "io_read"))
		assert.False(t, strings.Contains(out, "MPI_Finalize"))
	})

	t.Run("Exclusive Metric", func(t *testing.T) {
		out := tree(t, Options{Metric: calltree.MetricExclusiveTime}, DefaultFilter())
		lines := strings.Split(out, "\n")
		assert.Equal(t, "0.5000 main src/main.c:10 [hot]", lines[0])
		assert.Equal(t, "  2.5000 solve src/solve.c:42 [hot]", lines[1])
	})

	t.Run("Color", func(t *testing.T) {
		out := tree(t, Options{Metric: calltree.MetricInclusiveTime, Color: true}, DefaultFilter())
		assert.True(t, strings.Contains(out, "\x1b[38;2;255;0;0m4.0000"))
		assert.True(t, strings.Contains(out, "\x1b[38;2;0;255;0m0.0000"))
	})
}

func TestMetrics(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Metrics(&out, readTree(t)))
	require.Equal(t, "bytes\ntime\ntime (inc)\n", out.String())
}

func readTree(t *testing.T) *calltree.Tree {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "two-roots.json"))
	require.NoError(t, err)
	tr, err := calltree.ParseBytes(data)
	require.NoError(t, err)
	return tr
}

func tree(t *testing.T, opt Options, filter Filter) string {
	t.Helper()
	var out bytes.Buffer
	err := Tree(&out, readTree(t), opt, filter)
	require.NoError(t, err)
	return out.String()
}
