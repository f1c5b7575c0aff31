package loader

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/felixge/profileviewer/pkg/calltree"
	"github.com/felixge/profileviewer/pkg/profiler"
)

// scripts extracts the fake analysis scripts into a temporary directory and
// returns their paths by name.
func scripts(t *testing.T) map[string]string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake analysis scripts need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	archive, err := txtar.ParseFile(filepath.Join("..", "..", "testdata", "loader.txtar"))
	require.NoError(t, err)

	dir := t.TempDir()
	paths := map[string]string{}
	for _, f := range archive.Files {
		path := filepath.Join(dir, f.Name)
		require.NoError(t, os.WriteFile(path, f.Data, 0o644))
		paths[f.Name] = path
	}
	return paths
}

// profileLocation creates a location with the on-disk shape of
// profileType.
func profileLocation(t *testing.T, profileType string) string {
	t.Helper()
	p, err := profiler.Lookup(profileType)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "profile")
	if p.IsDirectory {
		require.NoError(t, os.Mkdir(path, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "experiment.xml"), nil, 0o644))
	} else {
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	return path
}

func newOutput(t *testing.T, script, profileType string) *Output {
	t.Helper()
	out, err := New(profileLocation(t, profileType), profileType, Options{
		Script:      script,
		Interpreter: StaticInterpreter("sh"),
		WaitDelay:   200 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(out.Dispose)
	return out
}

func TestGetTree(t *testing.T) {
	s := scripts(t)
	ctx := context.Background()

	t.Run("single root", func(t *testing.T) {
		tree, err := newOutput(t, s["single-root.sh"], "pyinstrument").GetTree(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, len(tree.Roots))
		require.InDelta(t, 0.1705, tree.MaxInclusiveTime(), 0.0001)
	})

	t.Run("two roots", func(t *testing.T) {
		tree, err := newOutput(t, s["two-roots.sh"], "caliper").GetTree(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, len(tree.Roots))
		require.Equal(t, 3.0, tree.MaxInclusiveTime())
	})

	t.Run("arguments", func(t *testing.T) {
		out := newOutput(t, s["args.sh"], "caliper")
		_, err := out.GetTree(ctx)
		var cErr *CollaboratorError
		require.True(t, errors.As(err, &cErr))
		require.Equal(t, "args", cErr.Code)
		require.Equal(t, "--profile "+out.Location+" --type caliper --hot-path", cErr.Message)
	})

	t.Run("misspelled timemory tag", func(t *testing.T) {
		out := newOutput(t, s["args.sh"], "timememory")
		require.Equal(t, "timemory", out.Type)
		_, err := out.GetTree(ctx)
		var cErr *CollaboratorError
		require.True(t, errors.As(err, &cErr))
		require.Equal(t, "--profile "+out.Location+" --type timemory --hot-path", cErr.Message)
	})
}

func TestGetTreeErrors(t *testing.T) {
	s := scripts(t)
	ctx := context.Background()

	t.Run("collaborator error", func(t *testing.T) {
		_, err := newOutput(t, s["error.sh"], "hpctoolkit").GetTree(ctx)
		require.Error(t, err)
		var cErr *CollaboratorError
		require.True(t, errors.As(err, &cErr))
		require.Equal(t, "1001", cErr.Code)
		require.Equal(t, "not found", cErr.Message)
		require.Contains(t, cErr.Stderr, "No module named 'hatchet'")
		require.Equal(t, "1001 -- not found", err.Error())
		require.True(t, IsDependencyMissing(err))
	})

	t.Run("numeric code", func(t *testing.T) {
		_, err := newOutput(t, s["error-numeric.sh"], "tau").GetTree(ctx)
		var cErr *CollaboratorError
		require.True(t, errors.As(err, &cErr))
		require.Equal(t, CodePathNotFound, cErr.Code)
		require.False(t, IsDependencyMissing(err))
	})

	t.Run("exit code", func(t *testing.T) {
		_, err := newOutput(t, s["exit.sh"], "gprof").GetTree(ctx)
		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		require.Equal(t, 3, exitErr.Code)
		require.Contains(t, exitErr.Stderr, "Traceback")
		require.Equal(t, "analysis script exited with code 3", err.Error())
	})

	t.Run("malformed output", func(t *testing.T) {
		_, err := newOutput(t, s["garbage.sh"], "scorep").GetTree(ctx)
		var decodeErr *calltree.DecodeError
		require.True(t, errors.As(err, &decodeErr))
	})

	t.Run("invalid location", func(t *testing.T) {
		// A directory without experiment.xml is not an hpctoolkit database.
		dir := t.TempDir()
		out, err := New(dir, "hpctoolkit", Options{Script: s["single-root.sh"], Interpreter: StaticInterpreter("sh")})
		require.NoError(t, err)
		_, err = out.GetTree(ctx)
		var locErr *LocationError
		require.True(t, errors.As(err, &locErr))
		require.Equal(t, dir+" is not a valid hpctoolkit profile directory", err.Error())
		require.Equal(t, 0, out.Running())

		out, err = New(dir, "caliper", Options{Script: s["single-root.sh"], Interpreter: StaticInterpreter("sh")})
		require.NoError(t, err)
		_, err = out.GetTree(ctx)
		require.True(t, errors.As(err, &locErr))
		require.False(t, locErr.IsDirectory)
	})

	t.Run("missing interpreter", func(t *testing.T) {
		out, err := New(profileLocation(t, "caliper"), "caliper", Options{
			Script:      s["single-root.sh"],
			Interpreter: StaticInterpreter(filepath.Join(t.TempDir(), "no-such-python")),
		})
		require.NoError(t, err)
		_, err = out.GetTree(ctx)
		require.Error(t, err)
		var execErr *exec.Error
		var pathErr *os.PathError
		require.True(t, errors.As(err, &execErr) || errors.As(err, &pathErr), "unexpected error: %v", err)
	})

	t.Run("no script", func(t *testing.T) {
		out, err := New(profileLocation(t, "caliper"), "caliper", Options{})
		require.NoError(t, err)
		_, err = out.GetTree(ctx)
		require.Error(t, err)
	})
}

func TestDispose(t *testing.T) {
	s := scripts(t)
	for _, name := range []string{"sleep.sh", "sleep-child.sh"} {
		t.Run(name, func(t *testing.T) {
			testDispose(t, newOutput(t, s[name], "cprofile"))
		})
	}
}

// testDispose checks that Dispose makes a running GetTree return. With
// sleep-child.sh the killed shell leaves a sleep process behind that still
// holds the script's output open.
func testDispose(t *testing.T, out *Output) {
	errCh := make(chan error, 1)
	go func() {
		_, err := out.GetTree(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return out.Running() == 1 }, 5*time.Second, 10*time.Millisecond)
	out.Dispose()
	out.Dispose()

	select {
	case err := <-errCh:
		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		require.Equal(t, -1, exitErr.Code)
	case <-time.After(10 * time.Second):
		t.Fatal("GetTree did not return after Dispose")
	}
	require.Equal(t, 0, out.Running())

	_, err := out.GetTree(context.Background())
	require.ErrorIs(t, err, ErrDisposed)
}

func TestDisposeWithoutProcess(t *testing.T) {
	out, err := New("/profiles/run.cali", "caliper", Options{})
	require.NoError(t, err)
	out.Dispose()
	out.Dispose()
}

func TestContextCancel(t *testing.T) {
	s := scripts(t)
	out := newOutput(t, s["sleep.sh"], "cprofile")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := out.GetTree(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJSONPassthrough(t *testing.T) {
	path := filepath.Join("..", "..", "testdata", "two-roots.json")
	// No script and no interpreter are needed.
	out, err := New(path, "json", Options{})
	require.NoError(t, err)
	require.False(t, out.IsDirectory)

	tree, err := out.GetTree(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, len(tree.Roots))
	require.Equal(t, 4.0, tree.MaxInclusiveTime())

	out, err = New(filepath.Join(t.TempDir(), "missing.json"), "json", Options{})
	require.NoError(t, err)
	_, err = out.GetTree(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew(t *testing.T) {
	_, err := New("/p", "perf", Options{})
	require.Error(t, err)

	out, err := New("/p", "hpctoolkit", Options{})
	require.NoError(t, err)
	require.True(t, out.IsDirectory)

	out, err = FromURI("profile:///data/hpctoolkit-db?type=hpctoolkit", Options{})
	require.NoError(t, err)
	require.Equal(t, "/data/hpctoolkit-db", out.Location)
	require.Equal(t, "hpctoolkit", out.Type)

	_, err = FromURI("profile:///data/db", Options{})
	require.Error(t, err)
}
