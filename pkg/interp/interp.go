// Package interp finds the interpreter used to run the analysis script.
package interp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Resolver discovers an interpreter path and caches it until Invalidate is
// called. The zero value is not usable, use NewResolver.
type Resolver struct {
	// Configured is an explicitly configured interpreter. It's tried first.
	Configured string
	// Modules must be importable by the interpreter for it to be picked.
	Modules []string

	logger   log.Logger
	lookPath func(file string) (string, error)
	getenv   func(key string) string
	probe    func(ctx context.Context, interpreter string, args ...string) error

	mu     sync.Mutex
	cached string
}

// NewResolver returns a resolver preferring the configured interpreter.
func NewResolver(configured string, modules []string, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Resolver{
		Configured: configured,
		Modules:    modules,
		logger:     logger,
		lookPath:   exec.LookPath,
		getenv:     os.Getenv,
		probe:      run,
	}
}

// Resolve returns the cached interpreter or discovers a new one. Candidates
// are tried in order: the configured interpreter, $Python3_ROOT_DIR, python3
// on the PATH. If none of them qualifies "python" is returned. Discovery
// never fails, a bad interpreter surfaces when it's executed.
func (r *Resolver) Resolve(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached
	}

	for _, candidate := range r.candidates() {
		if r.qualifies(ctx, candidate) {
			level.Debug(r.logger).Log("msg", "resolved interpreter", "path", candidate)
			r.cached = candidate
			return candidate
		}
	}
	level.Debug(r.logger).Log("msg", "no interpreter qualified, using fallback", "path", "python")
	r.cached = "python"
	return r.cached
}

// Invalidate drops the cached interpreter. It should be called when the
// interpreter turns out to be unusable, e.g. a required module is missing.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = ""
}

func (r *Resolver) candidates() []string {
	var candidates []string
	if r.Configured != "" {
		candidates = append(candidates, r.Configured)
	}
	if root := r.getenv("Python3_ROOT_DIR"); root != "" {
		exe := filepath.Join("bin", "python")
		if runtime.GOOS == "windows" {
			exe = "python.exe"
		}
		candidates = append(candidates, filepath.Join(root, exe))
	}
	if path, err := r.lookPath("python3"); err == nil {
		candidates = append(candidates, path)
	}
	return candidates
}

// qualifies returns true if the interpreter can import all required modules.
func (r *Resolver) qualifies(ctx context.Context, interpreter string) bool {
	if len(r.Modules) == 0 {
		return true
	}
	script := "import " + strings.Join(r.Modules, "; import ")
	if err := r.probe(ctx, interpreter, "-c", script); err != nil {
		level.Debug(r.logger).Log("msg", "interpreter rejected", "path", interpreter, "err", err)
		return false
	}
	return true
}

func run(ctx context.Context, interpreter string, args ...string) error {
	return exec.CommandContext(ctx, interpreter, args...).Run()
}
