// Package loader turns a profile on disk into a call tree by running the
// external analysis script.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/profiler"
)

// Interpreter resolves the interpreter used to run the analysis script.
type Interpreter interface {
	Resolve(ctx context.Context) string
}

// StaticInterpreter always resolves to itself.
type StaticInterpreter string

func (s StaticInterpreter) Resolve(context.Context) string {
	return string(s)
}

// Options configures an Output.
type Options struct {
	// Script is the path of the analysis script. It's required for all
	// profile types except the JSON passthrough type.
	Script string
	// Interpreter runs Script. Defaults to "python".
	Interpreter Interpreter
	// Logger defaults to a no-op logger.
	Logger log.Logger
	// WaitDelay bounds how long output is read after the script exited or
	// was killed. Defaults to DefaultWaitDelay.
	WaitDelay time.Duration
}

// DefaultWaitDelay is the default of Options.WaitDelay.
const DefaultWaitDelay = 2 * time.Second

// Output loads the call tree of a single profile. Nothing is read until
// GetTree is called.
//
// The result of GetTree is not cached and concurrent calls are not
// deduplicated, each call runs its own analysis process. Callers are
// expected to call GetTree once per opened document and keep the tree.
type Output struct {
	// Location is the profile file or directory.
	Location string
	// Type is the profile type tag.
	Type string
	// IsDirectory reports whether Location is expected to be a directory.
	IsDirectory bool

	validate    func(path string) bool
	script      string
	interpreter Interpreter
	waitDelay   time.Duration
	logger      log.Logger

	mu        sync.Mutex
	processes map[*os.Process]struct{}
	disposed  bool
}

// New returns an output for the profile at location of the given type.
func New(location, profileType string, opts Options) (*Output, error) {
	p, err := profiler.Lookup(profileType)
	if err != nil {
		return nil, err
	}
	if opts.Interpreter == nil {
		opts.Interpreter = StaticInterpreter("python")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = DefaultWaitDelay
	}
	return &Output{
		Location:    location,
		Type:        p.Tag,
		IsDirectory: p.IsDirectory,
		validate:    p.Validate,
		script:      opts.Script,
		interpreter: opts.Interpreter,
		waitDelay:   opts.WaitDelay,
		logger:      log.With(opts.Logger, "profile", location, "type", p.Tag),
		processes:   map[*os.Process]struct{}{},
	}, nil
}

// FromURI returns an output for a URI of the form
// scheme:///path/to/profile?type=<tag>.
func FromURI(raw string, opts Options) (*Output, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid profile uri: %w", err)
	}
	profileType := u.Query().Get("type")
	if profileType == "" {
		return nil, fmt.Errorf("profile uri %q has no type", raw)
	}
	return New(u.Path, profileType, opts)
}

// GetTree loads the call tree. For the JSON type the file is read directly,
// for all other types the location is checked against the profiler's
// on-disk shape and the analysis script is run and its output parsed once
// it exits. Dispose or cancelling ctx kill a running script.
func (o *Output) GetTree(ctx context.Context) (*calltree.Tree, error) {
	if o.Type == profiler.JSON {
		return o.readJSON()
	}
	return o.runScript(ctx)
}

func (o *Output) readJSON() (*calltree.Tree, error) {
	data, err := os.ReadFile(o.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return calltree.ParseBytes(data)
}

func (o *Output) runScript(ctx context.Context) (*calltree.Tree, error) {
	if !o.validate(o.Location) {
		return nil, &LocationError{Path: o.Location, Type: o.Type, IsDirectory: o.IsDirectory}
	}
	if o.script == "" {
		return nil, errors.New("no analysis script configured")
	}

	interpreter := o.interpreter.Resolve(ctx)
	cmd := exec.CommandContext(ctx, interpreter, o.script, "--profile", o.Location, "--type", o.Type, "--hot-path")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Processes started by the script may outlive it and keep its output
	// open. Stop reading once the script is gone.
	cmd.WaitDelay = o.waitDelay

	level.Debug(o.logger).Log("msg", "starting analysis script", "interpreter", interpreter, "script", o.script)
	if err := o.start(cmd); err != nil {
		return nil, err
	}
	defer o.forget(cmd.Process)

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(waitErr, exec.ErrWaitDelay):
		return nil, fmt.Errorf("failed to read analysis output: %w", waitErr)
	case waitErr == nil:
		level.Debug(o.logger).Log("msg", "analysis script finished", "stdout_bytes", stdout.Len())
		tree, err := calltree.ParseBytes(stdout.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to parse analysis output: %w", err)
		}
		return tree, nil
	case errors.As(waitErr, &exitErr):
		code := exitErr.ExitCode()
		level.Warn(o.logger).Log("msg", "analysis script failed", "code", code, "stderr", stderr.String())
		if cErr, ok := parseEnvelope(stdout.Bytes(), stderr.String()); ok {
			return nil, cErr
		}
		return nil, &ExitError{Code: code, Stderr: stderr.String()}
	default:
		return nil, waitErr
	}
}

// start starts cmd and tracks its process so Dispose can kill it.
func (o *Output) start(cmd *exec.Cmd) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.disposed {
		return ErrDisposed
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start analysis script: %w", err)
	}
	o.processes[cmd.Process] = struct{}{}
	return nil
}

func (o *Output) forget(p *os.Process) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.processes, p)
}

// Running returns the number of analysis processes in flight.
func (o *Output) Running() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.processes)
}

// Dispose kills all analysis processes in flight. Their GetTree calls return
// an error. Dispose may be called multiple times.
func (o *Output) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.disposed = true
	for p := range o.processes {
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			level.Warn(o.logger).Log("msg", "failed to kill analysis script", "pid", p.Pid, "err", err)
		}
	}
}
