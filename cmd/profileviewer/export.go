package main

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func exportCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer export", flag.ContinueOnError)
	typ := typeFlag(fs)

	return &ffcli.Command{
		Name:       "export",
		ShortUsage: "profileviewer export -type <type> <profile> <out.json>",
		ShortHelp:  "Write the call tree as JSON that can be opened with -type json.",
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
			return writeTree(args[1], tree)
		},
	}
}
