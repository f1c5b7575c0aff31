// Package print writes call trees as indented text for terminals.
package print

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/render"
)

// DefaultFilter returns a filter that matches all nodes.
func DefaultFilter() Filter {
	return Filter{MaxDepth: -1}
}

// Filter is used to filter nodes. A node that doesn't match is skipped
// together with its subtree.
type Filter struct {
	// MaxDepth prints nodes with a depth <= MaxDepth. Roots have depth 0. If
	// MaxDepth is -1, there is no limit.
	MaxDepth int
	// MinValue prints nodes whose value for the selected metric is >=
	// MinValue. Nodes without the metric have a value of 0.
	MinValue float64
	// HotPathOnly prints only nodes on the hot path.
	HotPathOnly bool
}

// Options configures Tree.
type Options struct {
	// Metric is used for sorting, coloring and the printed value.
	Metric string
	// Color colors the values from green to red relative to the largest
	// value in the tree.
	Color bool
}

// Tree prints all nodes of tree that match filter to w, one node per line.
// Children are indented below their parent and sorted by value, largest
// first.
func Tree(w io.Writer, tree *calltree.Tree, opt Options, filter Filter) error {
	tree.SetValueMetric(opt.Metric, true)
	p := printer{
		w:      w,
		opt:    opt,
		filter: filter,
		max:    tree.MaxMetricValue(opt.Metric, true),
	}
	for _, root := range tree.Roots {
		p.node(root, 0)
	}
	return p.err
}

type printer struct {
	w      io.Writer
	opt    Options
	filter Filter
	max    float64
	err    error
}

func (p *printer) node(n *calltree.Node, depth int) {
	if p.err != nil || !p.match(n, depth) {
		return
	}
	p.line(n, depth)
	for _, child := range n.SortedChildren() {
		p.node(child, depth+1)
	}
}

// match returns true if n at the given depth passes the filter.
func (p *printer) match(n *calltree.Node, depth int) bool {
	if p.filter.MaxDepth != -1 && depth > p.filter.MaxDepth {
		return false
	}
	if p.filter.HotPathOnly && !n.IsOnHotPath() {
		return false
	}
	value, _ := n.Value()
	return value >= p.filter.MinValue
}

// line prints a single node to w.
func (p *printer) line(n *calltree.Node, depth int) {
	value, _ := n.Value()
	valueStr := fmt.Sprintf("%.4f", value)
	if p.opt.Color {
		c := render.ScaleColor(render.Normalize(value, p.max))
		rgb := color.RGB(int(c.R), int(c.G), int(c.B))
		rgb.EnableColor()
		valueStr = rgb.Sprint(valueStr)
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(valueStr)
	sb.WriteString(" ")
	sb.WriteString(n.Name)
	if file := n.Filename(); file != "" {
		fmt.Fprintf(&sb, " %s:%d", file, n.Line())
	}
	if n.IsOnHotPath() {
		sb.WriteString(" [hot]")
	}
	sb.WriteString("\n")
	_, p.err = io.WriteString(p.w, sb.String())
}

// Metrics prints the metrics available in tree to w, one per line. Metrics
// starting with the internal prefix are omitted.
func Metrics(w io.Writer, tree *calltree.Tree) error {
	for _, m := range tree.AvailableMetrics(true, calltree.InternalMetricPrefix) {
		if _, err := fmt.Fprintln(w, m); err != nil {
			return err
		}
	}
	return nil
}
