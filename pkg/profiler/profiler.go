package profiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// JSON is the passthrough profile type. Its files contain a previously
// exported call tree and are read without the analysis script.
const JSON = "json"

// Profiler describes a profile type that can be opened. Profilers share no
// state, only this contract.
type Profiler struct {
	// Tag is the identifier passed to the analysis script via --type.
	Tag string
	// Name is the human readable name of the profiler.
	Name string
	// IsDirectory is true if the profiler writes a directory instead of a
	// single file.
	IsDirectory bool
	// Validate reports whether path has the on-disk shape this profiler
	// produces. It does not check that the contents are a valid profile.
	Validate func(path string) bool
	// CommandLine builds the shell command that records a profile for the
	// given task. It's nil for types that can only be opened.
	CommandLine func(task Task) (string, error)
}

// Task describes a program to be profiled.
type Task struct {
	// Program is the executable or script to run.
	Program string
	// Args are passed to Program.
	Args []string
	// Output is the file or directory the profile is written to.
	Output string
	// Interpreter is used to run Program for interpreted profilers.
	Interpreter string
	// Metrics are the events to sample (hpctoolkit only).
	Metrics []string
	// Period is the sampling period (hpctoolkit only).
	Period string
	// Trace enables tracing (hpctoolkit only).
	Trace bool
	// MPIRanks launches Program through MPICommand with this many ranks if
	// greater than 0 (hpctoolkit only).
	MPIRanks int
	// MPICommand defaults to "mpirun".
	MPICommand string
	// Renderer selects the output renderer (pyinstrument only).
	Renderer string
}

var registry = map[string]Profiler{}

func register(p Profiler) {
	if p.Validate == nil {
		if p.IsDirectory {
			p.Validate = isDir
		} else {
			p.Validate = isFile
		}
	}
	registry[p.Tag] = p
}

func init() {
	register(Profiler{Tag: "hpctoolkit", Name: "HPCToolkit", IsDirectory: true, Validate: isHPCToolkitDatabase, CommandLine: hpcToolkitCommandLine})
	register(Profiler{Tag: "caliper", Name: "Caliper"})
	register(Profiler{Tag: "tau", Name: "TAU", IsDirectory: true})
	register(Profiler{Tag: "pyinstrument", Name: "PyInstrument", CommandLine: pyInstrumentCommandLine})
	register(Profiler{Tag: "scorep", Name: "ScoreP"})
	register(Profiler{Tag: "gprof", Name: "GProf"})
	register(Profiler{Tag: "timemory", Name: "TiMemory"})
	register(Profiler{Tag: "cprofile", Name: "cProfile", CommandLine: cProfileCommandLine})
	register(Profiler{Tag: JSON, Name: "JSON"})

	// Older releases used this misspelled tag. It resolves to the timemory
	// profiler, whose tag is the one the analysis script accepts.
	registry["timememory"] = registry["timemory"]
}

// Lookup returns the profiler registered for tag.
func Lookup(tag string) (Profiler, error) {
	p, ok := registry[tag]
	if !ok {
		return Profiler{}, fmt.Errorf("unknown profile type: %q", tag)
	}
	return p, nil
}

// All returns all registered profilers sorted by tag. Aliases are not
// included.
func All() []Profiler {
	all := make([]Profiler, 0, len(registry))
	for tag, p := range registry {
		if tag != p.Tag {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Tag < all[j].Tag
	})
	return all
}

// Tags returns the sorted list of registered tags.
func Tags() []string {
	var tags []string
	for _, p := range All() {
		tags = append(tags, p.Tag)
	}
	return tags
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isHPCToolkitDatabase returns true if path is a directory containing an
// experiment.xml file.
func isHPCToolkitDatabase(path string) bool {
	return isDir(path) && isFile(filepath.Join(path, "experiment.xml"))
}

func hpcToolkitCommandLine(task Task) (string, error) {
	if task.Program == "" {
		return "", fmt.Errorf("hpctoolkit: missing program")
	}
	if task.Output == "" {
		return "", fmt.Errorf("hpctoolkit: missing measurements directory")
	}

	var parts []string
	if task.MPIRanks > 0 {
		mpi := task.MPICommand
		if mpi == "" {
			mpi = "mpirun"
		}
		parts = append(parts, mpi, "-n", strconv.Itoa(task.MPIRanks))
	}
	parts = append(parts, "hpcrun", "-o", task.Output)
	for _, m := range task.Metrics {
		parts = append(parts, "-e", m)
	}
	if task.Period != "" {
		parts = append(parts, "-c", task.Period)
	}
	if task.Trace {
		parts = append(parts, "-t")
	}
	parts = append(parts, task.Program)
	parts = append(parts, task.Args...)
	return strings.Join(parts, " "), nil
}

func cProfileCommandLine(task Task) (string, error) {
	if task.Program == "" {
		return "", fmt.Errorf("cprofile: missing program")
	}
	interpreter := task.Interpreter
	if interpreter == "" {
		interpreter = "python"
	}
	parts := []string{interpreter, "-m", "cProfile"}
	if task.Output != "" {
		parts = append(parts, "-o", task.Output)
	}
	parts = append(parts, task.Program)
	parts = append(parts, task.Args...)
	return strings.Join(parts, " "), nil
}

func pyInstrumentCommandLine(task Task) (string, error) {
	if task.Program == "" {
		return "", fmt.Errorf("pyinstrument: missing program")
	}
	renderer := task.Renderer
	if renderer == "" {
		// The analysis script reads pyinstrument's JSON output.
		renderer = "json"
	}
	parts := []string{"pyinstrument", "--renderer", renderer}
	if task.Output != "" {
		parts = append(parts, "--outfile", task.Output)
	}
	parts = append(parts, task.Program)
	parts = append(parts, task.Args...)
	return strings.Join(parts, " "), nil
}
