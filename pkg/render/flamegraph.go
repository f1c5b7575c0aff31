package render

import (
	"encoding/json"
	"html/template"
	"io"

	"github.com/felixge/profileviewer/pkg/calltree"
)

// FlameNode is a node in the hierarchical format understood by
// d3-flame-graph.
type FlameNode struct {
	Name     string       `json:"name"`
	Value    float64      `json:"value"`
	Children []*FlameNode `json:"children,omitempty"`
}

// FlameGraph converts tree into flame graph data for the given metric. Trees
// with multiple roots are joined under a synthetic root. Nodes without the
// metric get a value of 0.
func FlameGraph(tree *calltree.Tree, metric string) *FlameNode {
	root := tree.SingleRoot()
	root.SetValueMetric(metric, true)
	return flameNode(root)
}

func flameNode(n *calltree.Node) *FlameNode {
	value, _ := n.Value()
	fn := &FlameNode{Name: n.Name, Value: value}
	for _, child := range n.Children {
		fn.Children = append(fn.Children, flameNode(child))
	}
	return fn
}

// FlameGraphPage writes a standalone HTML page rendering root with
// d3-flame-graph.
func FlameGraphPage(w io.Writer, root *FlameNode, title string) error {
	data, err := json.Marshal(root)
	if err != nil {
		return err
	}
	return templates.ExecuteTemplate(w, "flamegraph", struct {
		Title string
		Data  template.JS
		Width int
	}{
		Title: title,
		Data:  template.JS(data),
		Width: 960,
	})
}
