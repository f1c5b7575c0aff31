package main

import (
	"bufio"
	"context"
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/print"
)

func printCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer print", flag.ContinueOnError)
	typ := typeFlag(fs)
	metric := fs.String("metric", calltree.MetricInclusiveTime, "metric used for sorting and coloring")
	filter := print.DefaultFilter()
	fs.IntVar(&filter.MaxDepth, "max-depth", filter.MaxDepth, "maximum depth to print, -1 for all")
	fs.Float64Var(&filter.MinValue, "min-value", filter.MinValue, "minimum value of printed nodes")
	fs.BoolVar(&filter.HotPathOnly, "hot-path-only", filter.HotPathOnly, "only print nodes on the hot path")

	return &ffcli.Command{
		Name:       "print",
		ShortUsage: "profileviewer print -type <type> <profile>",
		ShortHelp:  "Print the call tree to stdout.",
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

			// Print the tree to stdout
			stdout := bufio.NewWriter(os.Stdout)
			defer stdout.Flush()
			opt := print.Options{Metric: *metric, Color: useColor(os.Stdout)}
			return print.Tree(stdout, tree, opt, filter)
		},
	}
}

func metricsCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer metrics", flag.ContinueOnError)
	typ := typeFlag(fs)

	return &ffcli.Command{
		Name:       "metrics",
		ShortUsage: "profileviewer metrics -type <type> <profile>",
		ShortHelp:  "List the metrics available in a profile.",
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
			return print.Metrics(os.Stdout, tree)
		},
	}
}
