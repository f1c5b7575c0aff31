// Package pprof converts call trees into pprof profiles.
package pprof

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/pprof/profile"

	"github.com/felixge/profileviewer/pkg/calltree"
)

// Options configures Convert.
type Options struct {
	// Metric selects the sample values. Defaults to the inclusive time, which
	// is converted into exclusive wall time per stack.
	Metric string
}

// Convert writes tree to w as a gzipped pprof profile. Every node with a
// non-zero self value becomes a sample whose stack is the path from its
// root.
func Convert(tree *calltree.Tree, w io.Writer, opt Options) error {
	p, err := Profile(tree, opt)
	if err != nil {
		return err
	}
	return p.Write(w)
}

// Profile converts tree into a pprof profile.
func Profile(tree *calltree.Tree, opt Options) (*profile.Profile, error) {
	if opt.Metric == "" {
		opt.Metric = calltree.MetricInclusiveTime
	}

	sampleType, scale := sampleType(opt.Metric)
	p := &profile.Profile{
		SampleType:        []*profile.ValueType{sampleType},
		DefaultSampleType: sampleType.Type,
		Mapping:           []*profile.Mapping{},
		DurationNanos:     int64(tree.MaxInclusiveTime() * 1e9),
	}

	sampleIdx := map[string]*profile.Sample{}
	locationIdx := map[locationKey]*profile.Location{}
	fnIdx := map[funcKey]*profile.Function{}

	location := func(n *calltree.Node) *profile.Location {
		key := locationKey{Name: n.Name, File: n.Filename(), Line: n.Line()}
		loc, ok := locationIdx[key]
		if ok {
			return loc
		}
		fkey := funcKey{Name: n.Name, File: n.Filename()}
		fn, ok := fnIdx[fkey]
		if !ok {
			fn = &profile.Function{
				ID:         uint64(len(p.Function) + 1),
				Name:       n.Name,
				SystemName: n.Name,
				Filename:   n.Filename(),
			}
			p.Function = append(p.Function, fn)
			fnIdx[fkey] = fn
		}
		loc = &profile.Location{
			ID: uint64(len(p.Location)) + 1,
			Line: []profile.Line{{
				Function: fn,
				Line:     int64(n.Line()),
			}},
		}
		p.Location = append(p.Location, loc)
		locationIdx[key] = loc
		return loc
	}

	// stack holds the locations of the current path, leaf last.
	var stack []*profile.Location
	var walk func(n *calltree.Node)
	walk = func(n *calltree.Node) {
		stack = append(stack, location(n))
		if v := int64(math.Round(selfValue(n, opt.Metric) * scale)); v > 0 {
			key := stackKey(stack)
			sample, ok := sampleIdx[key]
			if !ok {
				// pprof expects the leaf first.
				locations := make([]*profile.Location, len(stack))
				for i, loc := range stack {
					locations[len(stack)-1-i] = loc
				}
				sample = &profile.Sample{
					Location: locations,
					Value:    []int64{0},
				}
				if n.IsOnHotPath() {
					sample.Label = map[string][]string{"hot_path": {"true"}}
				}
				p.Sample = append(p.Sample, sample)
				sampleIdx[key] = sample
			}
			sample.Value[0] += v
		}
		for _, child := range n.Children {
			walk(child)
		}
		stack = stack[:len(stack)-1]
	}
	for _, root := range tree.Roots {
		walk(root)
	}

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// sampleType returns the pprof value type for metric and the factor that
// converts metric values into it.
func sampleType(metric string) (*profile.ValueType, float64) {
	switch metric {
	case calltree.MetricInclusiveTime, calltree.MetricExclusiveTime:
		return &profile.ValueType{Type: "wall-time", Unit: "nanoseconds"}, 1e9
	}
	return &profile.ValueType{Type: strings.ReplaceAll(metric, " ", "_"), Unit: "count"}, 1
}

func selfValue(n *calltree.Node, metric string) float64 {
	if metric == calltree.MetricInclusiveTime {
		v, _ := n.ExclusiveTime()
		return v
	}
	v, _ := n.MetricValue(metric)
	return v
}

func stackKey(stack []*profile.Location) string {
	var sb strings.Builder
	for _, loc := range stack {
		fmt.Fprintf(&sb, "%d;", loc.ID)
	}
	return sb.String()
}

type locationKey struct {
	Name string
	File string
	Line int
}

type funcKey struct {
	Name string
	File string
}
