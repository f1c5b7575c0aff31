package calltree

import (
	"cmp"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
)

const (
	// MetricInclusiveTime is the metric that includes the time spent in all
	// descendants of a node.
	MetricInclusiveTime = "time (inc)"
	// MetricExclusiveTime is the metric that excludes descendant time.
	MetricExclusiveTime = "time"
	// InternalMetricPrefix marks derived metric families that should not be
	// offered to users when picking a metric.
	InternalMetricPrefix = "_"
)

// Node is a single node of a call tree produced by the analysis script. All
// fields are read-only after construction, the only mutable state is the
// value cache managed by SetValueMetric.
type Node struct {
	// Name is the display label of the node. It is not unique.
	Name string `json:"name"`
	// Frame is the opaque identity/location descriptor of the originating
	// profiler. It's passed through without interpretation.
	Frame map[string]any `json:"frame,omitempty"`
	// Metrics holds the named numeric measurements of the node. A missing
	// key means the metric is undefined for this node, not zero.
	Metrics map[string]float64 `json:"metrics"`
	// Attributes holds auxiliary metadata such as "file", "line" and
	// "hot_path".
	Attributes map[string]any `json:"attributes"`
	// Children are the callees of this node, in input order.
	Children []*Node `json:"children"`

	value    float64
	hasValue bool
}

// NewNode returns a node with the given fields. Nil maps and slices are
// replaced by empty ones.
func NewNode(name string, frame map[string]any, metrics map[string]float64, attributes map[string]any, children []*Node) *Node {
	if metrics == nil {
		metrics = map[string]float64{}
	}
	if attributes == nil {
		attributes = map[string]any{}
	}
	if children == nil {
		children = []*Node{}
	}
	return &Node{
		Name:       name,
		Frame:      frame,
		Metrics:    metrics,
		Attributes: attributes,
		Children:   children,
	}
}

// MetricValue returns the value of the named metric. ok is false if the
// metric is not defined for n.
func (n *Node) MetricValue(name string) (v float64, ok bool) {
	v, ok = n.Metrics[name]
	return
}

// InclusiveTime returns the inclusive time metric of n.
func (n *Node) InclusiveTime() (float64, bool) {
	return n.MetricValue(MetricInclusiveTime)
}

// ExclusiveTime returns the exclusive time of n. If the profile doesn't
// provide it, it's derived from the inclusive time of n minus the inclusive
// time of its children, clamped at 0.
func (n *Node) ExclusiveTime() (float64, bool) {
	if v, ok := n.Metrics[MetricExclusiveTime]; ok {
		return v, true
	}
	inc, ok := n.Metrics[MetricInclusiveTime]
	if !ok {
		return 0, false
	}
	for _, child := range n.Children {
		inc -= child.Metrics[MetricInclusiveTime]
	}
	return max(inc, 0), true
}

// MaxMetricValue returns the largest value of the named metric found on n
// and, if recursive is true, on all of its descendants. Undefined metrics
// count as 0.
func (n *Node) MaxMetricValue(name string, recursive bool) float64 {
	max := n.Metrics[name]
	if !recursive {
		return max
	}
	for _, child := range n.Children {
		if v := child.MaxMetricValue(name, true); v > max {
			max = v
		}
	}
	return max
}

// AvailableMetrics returns the sorted set of metric names defined on n, or
// on the whole subtree of n if recursive is true. Names starting with
// excludePrefix are left out unless excludePrefix is empty.
func (n *Node) AvailableMetrics(recursive bool, excludePrefix string) []string {
	set := map[string]struct{}{}
	n.collectMetrics(set, recursive)
	return sortedMetrics(set, excludePrefix)
}

func (n *Node) collectMetrics(set map[string]struct{}, recursive bool) {
	for name := range n.Metrics {
		set[name] = struct{}{}
	}
	if !recursive {
		return
	}
	for _, child := range n.Children {
		child.collectMetrics(set, true)
	}
}

func sortedMetrics(set map[string]struct{}, excludePrefix string) []string {
	metrics := make([]string, 0, len(set))
	for name := range set {
		if excludePrefix != "" && strings.HasPrefix(name, excludePrefix) {
			continue
		}
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)
	return metrics
}

// IsOnHotPath returns true if the hot_path attribute is present and truthy.
func (n *Node) IsOnHotPath() bool {
	v, ok := n.Attributes["hot_path"]
	if !ok {
		return false
	}
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v != ""
	default:
		return v != nil
	}
}

// Filename returns the "file" attribute of n or "" if there is none.
func (n *Node) Filename() string {
	s, _ := n.Attributes["file"].(string)
	return s
}

// Line returns the 1-based "line" attribute of n or 0 if there is none.
func (n *Node) Line() int {
	switch v := n.Attributes["line"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// ResolvedFilename looks for the source file of n on the local file system.
// An existing absolute path is returned as is, otherwise the file is looked
// up relative to workspaceRoot. ok is false if the file can't be found,
// which is a normal outcome for profiles recorded on another machine.
func (n *Node) ResolvedFilename(workspaceRoot string) (path string, ok bool) {
	filename := n.Filename()
	if filename == "" {
		return "", false
	}
	if filepath.IsAbs(filename) && fileExists(filename) {
		return filename, true
	}
	if workspaceRoot != "" {
		joined := filepath.Join(workspaceRoot, filename)
		if fileExists(joined) {
			return joined, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SetValueMetric copies the named metric into the value cache of n and, if
// recursive is true, of every descendant. Nodes without the metric end up
// with an undefined value.
func (n *Node) SetValueMetric(name string, recursive bool) {
	n.value, n.hasValue = n.Metrics[name]
	if !recursive {
		return
	}
	for _, child := range n.Children {
		child.SetValueMetric(name, true)
	}
}

// Value returns the value cached by the last SetValueMetric call.
func (n *Node) Value() (float64, bool) {
	return n.value, n.hasValue
}

// SortedChildren returns a copy of the children of n ordered by their cached
// value, largest first. Children with an undefined value sort as 0 and ties
// keep their input order.
func (n *Node) SortedChildren() []*Node {
	children := slices.Clone(n.Children)
	slices.SortStableFunc(children, func(a, b *Node) int {
		return cmp.Compare(b.value, a.value)
	})
	return children
}

// Walk calls fn for n and all of its descendants in depth-first pre-order.
// depth is 0 for n. Walk stops descending into a subtree if fn returns false.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}
