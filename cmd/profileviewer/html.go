package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/felixge/profileviewer/pkg/render"
	"github.com/felixge/profileviewer/pkg/view"
)

func htmlCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("profileviewer html", flag.ContinueOnError)
	typ := typeFlag(fs)
	metric := fs.String("metric", "", "initial metric (default \"time (inc)\")")
	openDepth := fs.Int("open-depth", render.DefaultInitialOpenDepth, "number of expanded tree levels")
	animated := fs.Bool("animated-hot-path", false, "animate hot path icons")
	codicons := fs.String("codicons", "", "URI of the codicons stylesheet")

	return &ffcli.Command{
		Name:       "html",
		ShortUsage: "profileviewer html -type <type> <profile> <out.html>",
		ShortHelp:  "Render the call tree as an HTML page.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("PROFILEVIEWER")},
		Exec: func(ctx context.Context, args []string) error {
			if err := checkArgs(args, 2); err != nil {
				return err
			}
			out, err := cfg.Output(*typ, args[0])
			if err != nil {
				return err
			}

			doc := view.NewDocument(out, view.DocumentOptions{
				Page: render.PageOptions{
					TreeOptions: render.TreeOptions{
						Metric:               *metric,
						InitialOpenDepth:     *openDepth,
						WorkspaceRoot:        cfg.workspace,
						AnimatedHotPathIcons: *animated,
					},
					CodiconsURI: *codicons,
				},
				Panels:      &filePanels{path: args[1]},
				Errors:      stderrReporter{logger: cfg.Logger()},
				Interpreter: cfg.Resolver(),
				Logger:      cfg.Logger(),
			})
			defer doc.Close()
			return doc.Open(ctx)
		},
	}
}

// filePanels is a panel host writing the content of its only panel to a
// file. Messages are never posted.
type filePanels struct {
	path string
}

func (p *filePanels) OpenPanel(content []byte) (view.PanelHandle, error) {
	return 1, p.SetContent(1, content)
}

func (p *filePanels) SetContent(_ view.PanelHandle, content []byte) error {
	if err := os.WriteFile(p.path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func (p *filePanels) OnMessage(view.PanelHandle, func(view.Message)) {}

func (p *filePanels) Dispose(view.PanelHandle) error { return nil }

// stderrReporter logs user facing errors.
type stderrReporter struct {
	logger log.Logger
}

func (r stderrReporter) ShowError(msg string) {
	level.Error(r.logger).Log("msg", msg)
}
