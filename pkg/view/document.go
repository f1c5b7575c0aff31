package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/loader"
	"github.com/felixge/profileviewer/pkg/render"
)

// TreeSource loads the call tree of a document. *loader.Output implements it.
type TreeSource interface {
	GetTree(ctx context.Context) (*calltree.Tree, error)
	Dispose()
}

// Invalidator drops cached state that turned out to be stale.
// *interp.Resolver implements it.
type Invalidator interface {
	Invalidate()
}

// DocumentOptions configures a Document.
type DocumentOptions struct {
	// Page configures rendering. The metric is replaced by the one selected
	// by the user.
	Page render.PageOptions
	// Panels is required.
	Panels PanelHost
	// Sources handles "open" messages. They're ignored if it's nil.
	Sources SourceOpener
	// Save handles "exportData" messages. They're ignored if it's nil.
	Save SaveDialog
	// Errors defaults to discarding error messages.
	Errors ErrorReporter
	// Interpreter is invalidated when the analysis library is missing.
	Interpreter Invalidator
	// Logger defaults to a no-op logger.
	Logger log.Logger
}

// Document is a profile opened in a panel. The tree is loaded once and kept
// for the life of the document, changing the metric only renders it again.
// A Document is safe for concurrent use.
type Document struct {
	source TreeSource
	opt    DocumentOptions
	logger log.Logger

	// rendering is held while the tree's value cache is set for a metric
	// and the page is built from it and shown.
	rendering sync.Mutex

	mu     sync.Mutex
	tree   *calltree.Tree
	panel  PanelHandle
	opened bool
}

// NewDocument returns a document showing the tree loaded from source.
func NewDocument(source TreeSource, opt DocumentOptions) *Document {
	if opt.Logger == nil {
		opt.Logger = log.NewNopLogger()
	}
	if opt.Errors == nil {
		opt.Errors = discardErrors{}
	}
	if opt.Page.Metric == "" {
		opt.Page.Metric = calltree.MetricInclusiveTime
	}
	return &Document{source: source, opt: opt, logger: opt.Logger}
}

// Tree returns the tree of the document, loading it on first use. Failed
// loads are not cached.
func (d *Document) Tree(ctx context.Context) (*calltree.Tree, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tree != nil {
		return d.tree, nil
	}
	tree, err := d.source.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	d.tree = tree
	return tree, nil
}

// Open loads the tree and shows it in a new panel using the default metric.
// Load failures are reported to the user and returned.
func (d *Document) Open(ctx context.Context) error {
	tree, err := d.Tree(ctx)
	if err != nil {
		d.reportLoadError(err)
		return err
	}
	h, err := d.openPanel(tree)
	if err != nil {
		return err
	}

	d.opt.Panels.OnMessage(h, func(msg Message) {
		if err := d.HandleMessage(context.Background(), msg); err != nil {
			level.Warn(d.logger).Log("msg", "failed to handle message", "command", msg.Command, "err", err)
			d.opt.Errors.ShowError(err.Error())
		}
	})
	return nil
}

// HandleMessage reacts to a message posted by the panel. Unknown commands
// are ignored.
func (d *Document) HandleMessage(ctx context.Context, msg Message) error {
	level.Debug(d.logger).Log("msg", "panel message", "command", msg.Command)
	switch msg.Command {
	case CommandOpen:
		if d.opt.Sources == nil {
			return nil
		}
		return d.opt.Sources.OpenSource(msg.Path, msg.Line)
	case CommandChangeMetric:
		metric := msg.Metric
		if metric == "" {
			metric = calltree.MetricInclusiveTime
		}
		return d.Render(ctx, metric)
	case CommandExportData:
		return d.Export(ctx)
	}
	return nil
}

func (d *Document) openPanel(tree *calltree.Tree) (PanelHandle, error) {
	d.rendering.Lock()
	defer d.rendering.Unlock()

	content, err := d.page(tree, d.opt.Page.Metric)
	if err != nil {
		return 0, err
	}
	h, err := d.opt.Panels.OpenPanel(content)
	if err != nil {
		return 0, fmt.Errorf("failed to open panel: %w", err)
	}

	d.mu.Lock()
	d.panel = h
	d.opened = true
	d.mu.Unlock()
	return h, nil
}

// Render shows the tree in the open panel using metric. Concurrent renders
// are serialized, the panel shows the page of the last one.
func (d *Document) Render(ctx context.Context, metric string) error {
	tree, err := d.Tree(ctx)
	if err != nil {
		return err
	}

	d.rendering.Lock()
	defer d.rendering.Unlock()
	content, err := d.page(tree, metric)
	if err != nil {
		return err
	}

	d.mu.Lock()
	h, opened := d.panel, d.opened
	d.mu.Unlock()
	if !opened {
		return errors.New("document is not open")
	}
	return d.opt.Panels.SetContent(h, content)
}

// Export asks the user for a location and writes the tree JSON to it.
func (d *Document) Export(ctx context.Context) error {
	if d.opt.Save == nil {
		return nil
	}
	tree, err := d.Tree(ctx)
	if err != nil {
		return err
	}
	path, ok, err := d.opt.Save.SaveLocation()
	if err != nil || !ok {
		return err
	}
	level.Debug(d.logger).Log("msg", "exporting tree", "path", path)
	var buf bytes.Buffer
	if err := tree.Encode(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Close disposes the tree source, killing a running analysis, and the
// panel. Close may be called multiple times.
func (d *Document) Close() error {
	d.source.Dispose()

	d.mu.Lock()
	h, opened := d.panel, d.opened
	d.opened = false
	d.mu.Unlock()
	if !opened {
		return nil
	}
	return d.opt.Panels.Dispose(h)
}

func (d *Document) page(tree *calltree.Tree, metric string) ([]byte, error) {
	opt := d.opt.Page
	opt.Metric = metric
	var buf bytes.Buffer
	if err := render.TreePage(&buf, tree, opt); err != nil {
		return nil, fmt.Errorf("failed to render tree: %w", err)
	}
	return buf.Bytes(), nil
}

// reportLoadError shows err to the user. A missing analysis library
// invalidates the interpreter, the cached one evidently can't run the
// script.
func (d *Document) reportLoadError(err error) {
	level.Warn(d.logger).Log("msg", "failed to load profile", "err", err)
	if loader.IsDependencyMissing(err) {
		if d.opt.Interpreter != nil {
			d.opt.Interpreter.Invalidate()
		}
		d.opt.Errors.ShowError(RemediationMessage(err))
		return
	}
	d.opt.Errors.ShowError(fmt.Sprintf("Error parsing profile: %s", errorMessage(err)))
}

// RemediationMessage returns the message shown when the analysis script
// can't import one of its libraries.
func RemediationMessage(err error) string {
	var cErr *loader.CollaboratorError
	if errors.As(err, &cErr) && cErr.Code == loader.CodeNumPyMissing {
		return fmt.Sprintf("Could not find NumPy install. Run 'pip install numpy' in your python environment.\nError parsing profile: %s.", cErr.Message)
	}
	return fmt.Sprintf("Could not find Hatchet install. Run 'pip install hatchet' in your python environment.\nError parsing profile: %s.", errorMessage(err))
}

func errorMessage(err error) string {
	var cErr *loader.CollaboratorError
	if errors.As(err, &cErr) {
		return cErr.Message
	}
	return err.Error()
}

type discardErrors struct{}

func (discardErrors) ShowError(string) {}
