package anonymize

import (
	"sync"

	"golang.org/x/tools/go/packages"

	"github.com/felixge/profileviewer/pkg/anon"
	"github.com/felixge/profileviewer/pkg/calltree"
)

// StdlibPackages returns the import paths of the Go standard library. The
// packages are loaded once using the go command.
var StdlibPackages = sync.OnceValues(func() ([]string, error) {
	pkgs, err := packages.Load(nil, "std")
	if err != nil {
		return nil, err
	}
	var stdlibPkgs []string
	for _, pkg := range pkgs {
		stdlibPkgs = append(stdlibPkgs, pkg.PkgPath)
	}
	return stdlibPkgs, nil
})

// Options configures Tree.
type Options struct {
	// Keep lists module, package and directory names that are not
	// obfuscated.
	Keep []string
}

// Tree returns an obfuscated copy of tree that can be shared without
// revealing user code. Node names and the "file" attribute are obfuscated by
// replacing all upper and lower case letters with "X" and "x" respectively,
// see the anon package for the rules. Frame names and files are obfuscated
// the same way. Metrics, line numbers and the tree structure are kept. The
// input tree is not modified.
func Tree(tree *calltree.Tree, opt Options) *calltree.Tree {
	roots := make([]*calltree.Node, len(tree.Roots))
	for i, root := range tree.Roots {
		roots[i] = anonymizeNode(root, opt.Keep)
	}
	return calltree.NewTree(roots)
}

func anonymizeNode(n *calltree.Node, keep []string) *calltree.Node {
	metrics := make(map[string]float64, len(n.Metrics))
	for k, v := range n.Metrics {
		metrics[k] = v
	}
	children := make([]*calltree.Node, len(n.Children))
	for i, child := range n.Children {
		children[i] = anonymizeNode(child, keep)
	}
	return calltree.NewNode(
		anon.Name(n.Name, keep),
		anonymizeMap(n.Frame, keep),
		metrics,
		anonymizeMap(n.Attributes, keep),
		children,
	)
}

// anonymizeMap copies m and obfuscates the "name" and "file" keys. All other
// values are copied as is.
func anonymizeMap(m map[string]any, keep []string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, ok := v.(string)
		switch {
		case ok && k == "name":
			out[k] = anon.Name(s, keep)
		case ok && k == "file":
			out[k] = anon.Path(s, keep)
		default:
			out[k] = v
		}
	}
	return out
}
