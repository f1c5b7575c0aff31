package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mattn/go-isatty"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/interp"
	"github.com/felixge/profileviewer/pkg/loader"
)

// main is the entry point for the profileviewer command line tool.
func main() {
	if err := realMain(); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// realMain is a helper function for main that returns an error.
func realMain() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := &rootConfig{}
	fs := flag.NewFlagSet("profileviewer", flag.ContinueOnError)
	fs.StringVar(&cfg.python, "python", "", "python interpreter used to run the analysis script")
	fs.StringVar(&cfg.script, "script", "", "path of the analysis script")
	fs.StringVar(&cfg.workspace, "workspace", "", "directory used to resolve relative source files")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.String("config", "", "config file (optional)")

	root := &ffcli.Command{
		Name:       "profileviewer",
		ShortUsage: "profileviewer [flags] <command> [command flags] <args>",
		ShortHelp:  "View call trees of HPC and Python profiles.",
		FlagSet:    fs,
		Options: []ff.Option{
			ff.WithEnvVarPrefix("PROFILEVIEWER"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithAllowMissingConfigFile(true),
		},
		Subcommands: []*ffcli.Command{
			htmlCommand(cfg),
			flameGraphCommand(cfg),
			printCommand(cfg),
			exportCommand(cfg),
			metricsCommand(cfg),
			breakdownCommand(cfg),
			foldedCommand(cfg),
			pprofCommand(cfg),
			anonymizeCommand(cfg),
			typesCommand(),
			taskCommand(cfg),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
	return root.ParseAndRun(ctx, os.Args[1:])
}

// rootConfig holds the flags shared by all commands.
type rootConfig struct {
	python    string
	script    string
	workspace string
	logLevel  string

	logger   log.Logger
	resolver *interp.Resolver
}

// Logger returns the logfmt logger writing to stderr, filtered by the
// configured log level.
func (c *rootConfig) Logger() log.Logger {
	if c.logger != nil {
		return c.logger
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, levelOption(c.logLevel))
	c.logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return c.logger
}

func levelOption(s string) level.Option {
	switch strings.ToLower(s) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// Resolver returns the interpreter resolver. The analysis script needs
// hatchet to read any profile.
func (c *rootConfig) Resolver() *interp.Resolver {
	if c.resolver == nil {
		c.resolver = interp.NewResolver(c.python, []string{"hatchet"}, c.Logger())
	}
	return c.resolver
}

// Output returns the loader for the profile at path.
func (c *rootConfig) Output(profileType, path string) (*loader.Output, error) {
	return loader.New(path, profileType, loader.Options{
		Script:      c.script,
		Interpreter: c.Resolver(),
		Logger:      c.Logger(),
	})
}

// Tree loads the call tree of the profile at path.
func (c *rootConfig) Tree(ctx context.Context, profileType, path string) (*calltree.Tree, error) {
	out, err := c.Output(profileType, path)
	if err != nil {
		return nil, err
	}
	defer out.Dispose()
	return out.GetTree(ctx)
}

// useColor returns true if f is a terminal and colors are not disabled via
// the NO_COLOR environment variable.
func useColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// checkArgs returns an error if args doesn't contain n arguments.
func checkArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

// createOutput creates the output file at path.
func createOutput(path string) (*os.File, error) {
	outFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return outFile, nil
}

// writeTree writes the JSON export of tree to path. The file is not created
// if the tree can't be encoded.
func writeTree(path string, tree *calltree.Tree) error {
	var buf bytes.Buffer
	if err := tree.Encode(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// typeFlag registers the -type flag shared by all commands reading a
// profile.
func typeFlag(fs *flag.FlagSet) *string {
	return fs.String("type", "", "profile type, see the types command")
}
