package calltree

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Tree is an ordered list of root nodes. A tree is built once per parse of
// the analysis output and treated as read-only afterwards.
type Tree struct {
	Roots []*Node `json:"roots"`
}

// NewTree returns a tree with the given roots.
func NewTree(roots []*Node) *Tree {
	return &Tree{Roots: roots}
}

// SingleRoot returns the root of a single-root tree. For trees with several
// roots a synthetic "root" node is returned whose children are the original
// roots and whose inclusive time is the largest inclusive time among them.
// The tree is not modified.
func (t *Tree) SingleRoot() *Node {
	if len(t.Roots) == 1 {
		return t.Roots[0]
	}
	children := make([]*Node, len(t.Roots))
	copy(children, t.Roots)
	return NewNode(
		"root",
		map[string]any{"name": "root", "type": "root"},
		map[string]float64{
			MetricExclusiveTime: 0,
			MetricInclusiveTime: t.MaxInclusiveTime(),
		},
		map[string]any{},
		children,
	)
}

// MaxMetricValue returns the largest value of the named metric across all
// roots and, if recursive is true, their descendants.
func (t *Tree) MaxMetricValue(name string, recursive bool) float64 {
	var max float64
	for _, root := range t.Roots {
		if v := root.MaxMetricValue(name, recursive); v > max {
			max = v
		}
	}
	return max
}

// MaxInclusiveTime returns the largest inclusive time among the roots. It
// doesn't look at descendants: an inclusive metric never grows when
// descending the tree, so the maximum is always found at a root. For
// malformed trees where a child exceeds its parent the child is ignored.
func (t *Tree) MaxInclusiveTime() float64 {
	return t.MaxMetricValue(MetricInclusiveTime, false)
}

// AvailableMetrics returns the sorted union of the metrics available on the
// roots, see Node.AvailableMetrics.
func (t *Tree) AvailableMetrics(recursive bool, excludePrefix string) []string {
	set := map[string]struct{}{}
	for _, root := range t.Roots {
		root.collectMetrics(set, recursive)
	}
	return sortedMetrics(set, excludePrefix)
}

// SetValueMetric calls SetValueMetric on every root.
func (t *Tree) SetValueMetric(name string, recursive bool) {
	for _, root := range t.Roots {
		root.SetValueMetric(name, recursive)
	}
}

// Walk calls Node.Walk on every root.
func (t *Tree) Walk(fn func(node *Node, depth int) bool) {
	for _, root := range t.Roots {
		root.Walk(fn)
	}
}

// Encode writes the JSON export format of the tree, {"roots": [...]}, to w.
// The output can be read back with Parse. Nothing is written if the tree
// can't be encoded, e.g. because a metric is NaN or infinite.
func (t *Tree) Encode(w io.Writer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// String returns the JSON export format of the tree, or the encoding error
// if it can't be encoded.
func (t *Tree) String() string {
	var sb strings.Builder
	if err := t.Encode(&sb); err != nil {
		return err.Error()
	}
	return sb.String()
}
