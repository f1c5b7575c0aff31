package main

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/pprof"
)

func pprofCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer pprof", flag.ContinueOnError)
	typ := typeFlag(fs)
	var opt pprof.Options
	fs.StringVar(&opt.Metric, "metric", calltree.MetricInclusiveTime, "metric of the sample values")

	return &ffcli.Command{
		Name:       "pprof",
		ShortUsage: "profileviewer pprof -type <type> <profile> <out.pb.gz>",
		ShortHelp:  "Convert the call tree to a pprof profile.",
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

			// Convert tree to pprof
			return pprof.Convert(tree, outFile, opt)
		},
	}
}
