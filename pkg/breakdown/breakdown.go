package breakdown

import (
	"github.com/felixge/profileviewer/pkg/calltree"
)

// ByName walks tree and returns a breakdown of it by node name.
func ByName(tree *calltree.Tree) NameBreakdown {
	breakdown := make(NameBreakdown)
	onStack := map[string]int{}

	var walk func(n *calltree.Node)
	walk = func(n *calltree.Node) {
		s := breakdown[n.Name]
		s.Name = n.Name
		s.Count++
		self, _ := n.ExclusiveTime()
		s.Self += self
		// Recursive calls are already contained in the inclusive time of the
		// outermost call.
		if onStack[n.Name] == 0 {
			inc, _ := n.InclusiveTime()
			s.Total += inc
		}
		breakdown[n.Name] = s

		onStack[n.Name]++
		for _, child := range n.Children {
			walk(child)
		}
		onStack[n.Name]--
	}
	for _, root := range tree.Roots {
		walk(root)
	}
	return breakdown
}

// NameBreakdown breaks down the time of a call tree by node name.
type NameBreakdown map[string]NameSummary

// NameSummary summarizes the occurrence of a name inside of a call tree.
type NameSummary struct {
	// Name is the node name.
	Name string
	// Count is the number of nodes with this name in the tree.
	Count int64
	// Self is the sum of the exclusive time of all nodes with this name.
	Self float64
	// Total is the sum of the inclusive time of all nodes with this name that
	// have no ancestor of the same name.
	Total float64
}
