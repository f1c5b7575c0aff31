package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"golang.org/x/exp/slices"

	"github.com/felixge/profileviewer/pkg/calltree"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// DefaultInitialOpenDepth is the number of tree levels expanded by default.
const DefaultInitialOpenDepth = 3

// DefaultTreeOptions returns the options used when nothing else is
// configured.
func DefaultTreeOptions() TreeOptions {
	return TreeOptions{
		Metric:           calltree.MetricInclusiveTime,
		InitialOpenDepth: DefaultInitialOpenDepth,
	}
}

// TreeOptions configures TreeHTML.
type TreeOptions struct {
	// Metric is used for sorting, coloring and the displayed value.
	Metric string
	// InitialOpenDepth is the number of levels that are expanded. Nodes at
	// this depth and below are collapsed.
	InitialOpenDepth int
	// WorkspaceRoot is used to resolve relative source file names.
	WorkspaceRoot string
	// AnimatedHotPathIcons selects the animated flame icon for hot path
	// nodes.
	AnimatedHotPathIcons bool
}

// treeNode is the view model of a single list item.
type treeNode struct {
	Name         string
	Value        string
	Color        template.CSS
	File         string
	ResolvedFile string
	Line         int
	HotPathClass string
	Open         bool
	Children     []treeNode
}

// TreeHTML writes the tree as nested HTML lists to w. Children are sorted by
// the selected metric in descending order, nodes without the metric sort as
// 0. The tree's value cache is set to the metric, the node order of the tree
// itself is not changed.
func TreeHTML(w io.Writer, tree *calltree.Tree, opt TreeOptions) error {
	roots := buildTreeNodes(tree, opt)
	return templates.ExecuteTemplate(w, "tree", roots)
}

func buildTreeNodes(tree *calltree.Tree, opt TreeOptions) []treeNode {
	tree.SetValueMetric(opt.Metric, true)
	max := tree.MaxMetricValue(opt.Metric, true)

	roots := make([]treeNode, 0, len(tree.Roots))
	for _, root := range tree.Roots {
		roots = append(roots, buildTreeNode(root, opt, max, 0))
	}
	return roots
}

func buildTreeNode(n *calltree.Node, opt TreeOptions, max float64, depth int) treeNode {
	value, _ := n.Value()
	resolved, _ := n.ResolvedFilename(opt.WorkspaceRoot)

	tn := treeNode{
		Name:         n.Name,
		Value:        fmt.Sprintf("%.4f", value),
		Color:        template.CSS(CSSColor(ScaleColor(Normalize(value, max)))),
		File:         n.Filename(),
		ResolvedFile: resolved,
		Line:         n.Line(),
		Open:         depth < opt.InitialOpenDepth,
	}
	if n.IsOnHotPath() {
		tn.HotPathClass = "hotpath-icon codicon codicon-flame"
		if opt.AnimatedHotPathIcons {
			tn.HotPathClass = "hotpath-icon fancy-hotpath-icon codicon codicon-flame"
		}
	}

	for _, child := range n.SortedChildren() {
		tn.Children = append(tn.Children, buildTreeNode(child, opt, max, depth+1))
	}
	return tn
}

// PageOptions configures TreePage.
type PageOptions struct {
	TreeOptions
	// CodiconsURI is the stylesheet providing the icon font.
	CodiconsURI string
	// CSPSource is the content security policy source of the host.
	CSPSource string
}

// MetricOption is an entry of the metric selector.
type MetricOption struct {
	Name     string
	Selected bool
}

// MetricOptions returns the metrics a user can pick from, with the given
// metric marked as selected. The first metric is selected if the given one
// is not available.
func MetricOptions(tree *calltree.Tree, selected string) []MetricOption {
	metrics := tree.AvailableMetrics(false, calltree.InternalMetricPrefix)
	idx := slices.Index(metrics, selected)
	if idx == -1 {
		idx = 0
	}
	options := make([]MetricOption, len(metrics))
	for i, m := range metrics {
		options[i] = MetricOption{Name: m, Selected: i == idx}
	}
	return options
}

// TreePage writes a complete HTML page containing the tree, a metric
// selector and the script posting "open" and "changeMetric" messages to the
// host.
func TreePage(w io.Writer, tree *calltree.Tree, opt PageOptions) error {
	return templates.ExecuteTemplate(w, "page", struct {
		Roots       []treeNode
		Metrics     []MetricOption
		CodiconsURI template.URL
		CSPSource   string
	}{
		Roots:       buildTreeNodes(tree, opt.TreeOptions),
		Metrics:     MetricOptions(tree, opt.Metric),
		CodiconsURI: template.URL(opt.CodiconsURI),
		CSPSource:   opt.CSPSource,
	})
}
