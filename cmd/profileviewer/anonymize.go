package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/anonymize"
)

func anonymizeCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer anonymize", flag.ContinueOnError)
	typ := typeFlag(fs)
	keepGoStd := fs.Bool("keep-go-std", false, "keep names and paths of Go standard library packages")
	keep := fs.String("keep", "", "comma separated module, package and directory names to keep")

	return &ffcli.Command{
		Name:       "anonymize",
		ShortUsage: "profileviewer anonymize -type <type> <profile> <out.json>",
		ShortHelp:  "Write an obfuscated copy of the call tree that can be shared.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("PROFILEVIEWER")},
		Exec: func(ctx context.Context, args []string) error {
			if err := checkArgs(args, 2); err != nil {
				return err
			}
			var opt anonymize.Options
			if *keep != "" {
				opt.Keep = strings.Split(*keep, ",")
			}
			if *keepGoStd {
				pkgs, err := anonymize.StdlibPackages()
				if err != nil {
					return fmt.Errorf("failed to load standard library packages: %w", err)
				}
				opt.Keep = append(opt.Keep, pkgs...)
			}

			tree, err := cfg.Tree(ctx, *typ, args[0])
			if err != nil {
				return err
			}

			return writeTree(args[1], anonymize.Tree(tree, opt))
		},
	}
}
