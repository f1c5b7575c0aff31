package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/render"
)

// TreeItem is a single row of a native tree view.
type TreeItem struct {
	// ID is passed to ProvideChildren to get the children of the item.
	ID string
	// Label is the inclusive time followed by the node name.
	Label string
	// Description is the source file of the node, if any.
	Description string
	// Line is the source line of the node, 0 if unknown.
	Line int
	// SpeedLevel ranges from 0 for the slowest node in the tree to 10 for
	// nodes that take no time. Hosts map it to a color.
	SpeedLevel int
	// HotPath marks items that should be shown with a flame icon.
	HotPath bool
	// Collapsible is true if the item has children.
	Collapsible bool
}

// TreeDataProvider provides the items of a native tree view for a call tree.
// Items are addressed by the path of child indexes from the roots.
type TreeDataProvider struct {
	host TreeViewHost

	mu   sync.Mutex
	tree *calltree.Tree
	max  float64
}

// NewTreeDataProvider returns a provider without a tree. host may be nil.
func NewTreeDataProvider(host TreeViewHost) *TreeDataProvider {
	return &TreeDataProvider{host: host}
}

// SetTree replaces the displayed tree and notifies the host.
func (p *TreeDataProvider) SetTree(tree *calltree.Tree) {
	p.mu.Lock()
	p.tree = tree
	p.max = 0
	if tree != nil {
		p.max = tree.MaxMetricValue(calltree.MetricInclusiveTime, true)
	}
	p.mu.Unlock()

	if p.host != nil {
		p.host.NotifyChanged()
	}
}

// ProvideChildren returns the items below the item with the given ID, or the
// roots if nodeID is empty.
func (p *TreeDataProvider) ProvideChildren(nodeID string) ([]TreeItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tree == nil {
		return nil, nil
	}
	nodes := p.tree.Roots
	if nodeID != "" {
		n, err := p.lookup(nodeID)
		if err != nil {
			return nil, err
		}
		nodes = n.Children
	}

	items := make([]TreeItem, len(nodes))
	for i, n := range nodes {
		id := strconv.Itoa(i)
		if nodeID != "" {
			id = nodeID + "/" + id
		}
		items[i] = p.item(id, n)
	}
	return items, nil
}

func (p *TreeDataProvider) lookup(nodeID string) (*calltree.Node, error) {
	nodes := p.tree.Roots
	var n *calltree.Node
	for _, part := range strings.Split(nodeID, "/") {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 || i >= len(nodes) {
			return nil, fmt.Errorf("unknown tree item %q", nodeID)
		}
		n = nodes[i]
		nodes = n.Children
	}
	return n, nil
}

func (p *TreeDataProvider) item(id string, n *calltree.Node) TreeItem {
	t, _ := n.InclusiveTime()
	v := math.Max(0, math.Min(1, render.Normalize(t, p.max)))
	return TreeItem{
		ID:          id,
		Label:       fmt.Sprintf("%.3fs  %s", t, n.Name),
		Description: n.Filename(),
		Line:        n.Line(),
		SpeedLevel:  int(math.Round((1 - v) * 10)),
		HotPath:     n.IsOnHotPath(),
		Collapsible: len(n.Children) > 0,
	}
}
