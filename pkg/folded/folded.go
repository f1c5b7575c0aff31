// Package folded writes call trees in the folded stack format used by
// flamegraph.pl and speedscope.
package folded

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/felixge/profileviewer/pkg/calltree"
)

// DefaultScale converts seconds to microseconds.
const DefaultScale = 1e6

// Options configures Folded.
type Options struct {
	// Metric selects the value of each stack. For the inclusive time metric
	// the exclusive time of each node is written instead, since the folded
	// format expects self values.
	Metric string
	// Scale multiplies each value before it's rounded to an integer.
	// Defaults to DefaultScale.
	Scale float64
}

// Folded writes tree to w in a format [1] that can be visualized by
// flamegraph.pl. Each line holds the semicolon separated names of a stack
// followed by its value. Identical stacks are merged and stacks with a value
// of 0 are omitted.
//
// [1] https://github.com/brendangregg/FlameGraph#2-fold-stacks
func Folded(tree *calltree.Tree, w io.Writer, opt Options) error {
	if opt.Scale == 0 {
		opt.Scale = DefaultScale
	}
	samples, err := getSamples(tree, opt)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if _, err := fmt.Fprintf(w, "%s %d\n", s.Stack, s.Value); err != nil {
			return err
		}
	}
	return nil
}

// sample represents a single folded stack.
type sample struct {
	Stack string
	Value int64
}

func getSamples(tree *calltree.Tree, opt Options) ([]sample, error) {
	samples := make([]sample, 0, 100)
	index := map[string]int{}

	var stack []string
	var walk func(n *calltree.Node)
	walk = func(n *calltree.Node) {
		stack = append(stack, frameName(n.Name))
		if v := math.Round(selfValue(n, opt.Metric) * opt.Scale); v > 0 {
			key := strings.Join(stack, ";")
			if i, ok := index[key]; ok {
				samples[i].Value += int64(v)
			} else {
				index[key] = len(samples)
				samples = append(samples, sample{Stack: key, Value: int64(v)})
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
		stack = stack[:len(stack)-1]
	}
	for _, root := range tree.Roots {
		walk(root)
	}

	if len(samples) <= 0 {
		return nil, fmt.Errorf("no samples for metric %q", opt.Metric)
	}
	return samples, nil
}

func selfValue(n *calltree.Node, metric string) float64 {
	if metric == calltree.MetricInclusiveTime {
		v, _ := n.ExclusiveTime()
		return v
	}
	v, _ := n.MetricValue(metric)
	return v
}

// frameName replaces the characters that separate frames and values.
func frameName(name string) string {
	return strings.NewReplacer(";", ":", " ", "_", "\n", "_").Replace(name)
}
