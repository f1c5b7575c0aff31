package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/interp"
	"github.com/felixge/profileviewer/pkg/profiler"
)

func typesCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "types",
		ShortUsage: "profileviewer types",
		ShortHelp:  "List the supported profile types.",
		Exec: func(context.Context, []string) error {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Type", "Name", "Input", "Task"})
			for _, p := range profiler.All() {
				input := "file"
				if p.IsDirectory {
					input = "directory"
				}
				task := ""
				if p.CommandLine != nil {
					task = "yes"
				}
				table.Append([]string{p.Tag, p.Name, input, task})
			}
			table.Render()
			return nil
		},
	}
}

// stringsFlag is a flag that can be given multiple times.
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func taskCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer task", flag.ContinueOnError)
	typ := typeFlag(fs)
	var task profiler.Task
	var metrics stringsFlag
	fs.StringVar(&task.Output, "o", "", "file or directory the profile is written to")
	fs.Var(&metrics, "event", "event to sample, may be repeated (hpctoolkit)")
	fs.StringVar(&task.Period, "period", "", "sampling period (hpctoolkit)")
	fs.BoolVar(&task.Trace, "trace", false, "enable tracing (hpctoolkit)")
	fs.IntVar(&task.MPIRanks, "mpi-ranks", 0, "number of MPI ranks, 0 to run without MPI (hpctoolkit)")
	fs.StringVar(&task.MPICommand, "mpi-command", "mpirun", "MPI launcher (hpctoolkit)")
	fs.StringVar(&task.Renderer, "renderer", "json", "output renderer (pyinstrument)")

	return &ffcli.Command{
		Name:       "task",
		ShortUsage: "profileviewer task -type <type> -o <out> -- <program> [args]",
		ShortHelp:  "Print the command that records a profile of a program.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("PROFILEVIEWER")},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("expected a program to profile")
			}
			p, err := profiler.Lookup(*typ)
			if err != nil {
				return err
			}
			if p.CommandLine == nil {
				return fmt.Errorf("profile type %q can't record profiles", p.Tag)
			}

			task.Program = args[0]
			task.Args = args[1:]
			task.Metrics = metrics
			// Profiling only needs the interpreter itself, not the libraries
			// of the analysis script.
			task.Interpreter = interp.NewResolver(cfg.python, nil, cfg.Logger()).Resolve(ctx)
			cmd, err := p.CommandLine(task)
			if err != nil {
				return err
			}
			fmt.Println(cmd)
			return nil
		},
	}
}
