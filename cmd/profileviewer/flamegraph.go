package main

import (
	"context"
	"encoding/json"
	"flag"
	"path/filepath"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/render"
)

func flameGraphCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer flamegraph", flag.ContinueOnError)
	typ := typeFlag(fs)
	metric := fs.String("metric", calltree.MetricInclusiveTime, "metric used for the frame widths")
	asJSON := fs.Bool("json", false, "write the d3-flame-graph data instead of a page")

	return &ffcli.Command{
		Name:       "flamegraph",
		ShortUsage: "profileviewer flamegraph -type <type> <profile> <out>",
		ShortHelp:  "Render the call tree as a flame graph.",
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

			outFile, err := createOutput(args[1])
			if err != nil {
				return err
			}
			defer outFile.Close()

			root := render.FlameGraph(tree, *metric)
			if *asJSON {
				return json.NewEncoder(outFile).Encode(root)
			}
			return render.FlameGraphPage(outFile, root, filepath.Base(args[0]))
		},
	}
}
