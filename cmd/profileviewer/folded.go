package main

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/folded"
)

func foldedCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer folded", flag.ContinueOnError)
	typ := typeFlag(fs)
	opt := folded.Options{Metric: calltree.MetricInclusiveTime, Scale: folded.DefaultScale}
	fs.StringVar(&opt.Metric, "metric", opt.Metric, "metric of the stack values")
	fs.Float64Var(&opt.Scale, "scale", opt.Scale, "factor applied to each value before rounding")

	return &ffcli.Command{
		Name:       "folded",
		ShortUsage: "profileviewer folded -type <type> <profile> <out>",
		ShortHelp:  "Convert the call tree to folded stacks for flamegraph.pl or speedscope.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("PROFILEVIEWER")},
		Exec: func(ctx context.Context, args []string) error {
			if err := checkArgs(args, 2); err != nil {
				return err
			}
			tree, err := cfg.Tree(ctx, *typ, args[0])
			if err != nil {
				return err
			}

			// Open the output file
			outFile, err := createOutput(args[1])
			if err != nil {
				return err
			}
			defer outFile.Close()

			// Convert the tree to folded stacks.
			return folded.Folded(tree, outFile, opt)
		},
	}
}
