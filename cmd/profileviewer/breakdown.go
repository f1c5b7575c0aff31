package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/breakdown"
)

type BreakdownFlavor string

const (
	BreakdownCSV   BreakdownFlavor = "csv"
	BreakdownSelf  BreakdownFlavor = "self"
	BreakdownTotal BreakdownFlavor = "total"
	BreakdownCount BreakdownFlavor = "count"
)

func breakdownCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer breakdown", flag.ContinueOnError)
	typ := typeFlag(fs)
	flavor := fs.String("flavor", string(BreakdownSelf), "output flavor: self, total, count or csv")

	return &ffcli.Command{
		Name:       "breakdown",
		ShortUsage: "profileviewer breakdown -type <type> <profile>",
		ShortHelp:  "Break down the time of a profile by function name.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("PROFILEVIEWER")},
		Exec: func(ctx context.Context, args []string) error {
			if err := checkArgs(args, 1); err != nil {
				return err
			}
			tree, err := cfg.Tree(ctx, *typ, args[0])
			if err != nil {
				return err
			}
			return BreakdownCommand(BreakdownFlavor(*flavor), breakdown.ByName(tree))
		},
	}
}

func BreakdownCommand(flavor BreakdownFlavor, bd breakdown.NameBreakdown) error {
	totalSelf := 0.0
	totalCount := int64(0)
	summaries := make([]breakdown.NameSummary, 0, len(bd))
	for _, ns := range bd {
		summaries = append(summaries, ns)
		totalSelf += ns.Self
		totalCount += ns.Count
	}
	// Stable output for equal values.
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	var header []string
	var rows [][]string
	var footer []string
	switch flavor {
	case BreakdownCSV:
		header = []string{"Name", "Count", "Self", "Total"}
		cw := csv.NewWriter(os.Stdout)
		cw.Write(header)
		for _, ns := range summaries {
			cw.Write([]string{
				ns.Name,
				fmt.Sprintf("%d", ns.Count),
				fmt.Sprintf("%f", ns.Self),
				fmt.Sprintf("%f", ns.Total),
			})
		}
		cw.Flush()
		return cw.Error()
	case BreakdownSelf:
		header = []string{"Name", "Self", "%"}
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].Self > summaries[j].Self
		})
		for _, ns := range summaries {
			rows = append(rows, []string{
				ns.Name,
				humanSeconds(ns.Self),
				percent(ns.Self, totalSelf),
			})
		}
		footer = []string{"Total", humanSeconds(totalSelf), "100.00%"}
	case BreakdownTotal:
		header = []string{"Name", "Total", "Self"}
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].Total > summaries[j].Total
		})
		for _, ns := range summaries {
			rows = append(rows, []string{
				ns.Name,
				humanSeconds(ns.Total),
				humanSeconds(ns.Self),
			})
		}
	case BreakdownCount:
		header = []string{"Name", "Count", "%"}
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].Count > summaries[j].Count
		})
		for _, ns := range summaries {
			rows = append(rows, []string{
				ns.Name,
				fmt.Sprintf("%d", ns.Count),
				percent(float64(ns.Count), float64(totalCount)),
			})
		}
		footer = []string{"Total", fmt.Sprintf("%d", totalCount), "100.00%"}
	default:
		return fmt.Errorf("unknown breakdown flavor: %s", flavor)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.AppendBulk(rows)
	if footer != nil {
		table.SetFooter(footer)
	}
	table.Render()
	return nil
}

// humanSeconds converts the given number of seconds to a human readable
// string.
func humanSeconds(s float64) string {
	switch {
	case s >= 1 || s == 0:
		return fmt.Sprintf("%.3f s", s)
	case s >= 1e-3:
		return fmt.Sprintf("%.3f ms", s*1e3)
	default:
		return fmt.Sprintf("%.3f µs", s*1e6)
	}
}

func percent(v, total float64) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", v/total*100)
}
