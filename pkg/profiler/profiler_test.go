package profiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		tag     string
		wantTag string
		isDir   bool
	}{
		{"hpctoolkit", "hpctoolkit", true},
		{"caliper", "caliper", false},
		{"tau", "tau", true},
		{"pyinstrument", "pyinstrument", false},
		{"scorep", "scorep", false},
		{"gprof", "gprof", false},
		{"timemory", "timemory", false},
		{"timememory", "timemory", false},
		{"cprofile", "cprofile", false},
		{"json", "json", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			p, err := Lookup(tt.tag)
			require.NoError(t, err)
			require.Equal(t, tt.wantTag, p.Tag)
			require.Equal(t, tt.isDir, p.IsDirectory)
			require.NotNil(t, p.Validate)
		})
	}

	_, err := Lookup("perf")
	require.Error(t, err)
	require.Equal(t, len(tests)-1, len(Tags()))
	require.NotContains(t, Tags(), "timememory")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	cprofile, err := Lookup("cprofile")
	require.NoError(t, err)
	require.True(t, cprofile.Validate(file))
	require.False(t, cprofile.Validate(dir))
	require.False(t, cprofile.Validate(filepath.Join(dir, "missing")))

	hpctoolkit, err := Lookup("hpctoolkit")
	require.NoError(t, err)
	require.False(t, hpctoolkit.Validate(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "experiment.xml"), nil, 0o644))
	require.True(t, hpctoolkit.Validate(dir))
	require.False(t, hpctoolkit.Validate(file))

	tau, err := Lookup("tau")
	require.NoError(t, err)
	require.True(t, tau.Validate(dir))
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		tag  string
		task Task
		want string
	}{
		{
			tag:  "hpctoolkit",
			task: Task{Program: "./app", Output: "m", Args: []string{"-n", "4"}},
			want: "hpcrun -o m ./app -n 4",
		},
		{
			tag: "hpctoolkit",
			task: Task{
				Program:  "./app",
				Output:   "m",
				Metrics:  []string{"CPUTIME", "PAPI_TOT_CYC"},
				Period:   "f100",
				Trace:    true,
				MPIRanks: 8,
			},
			want: "mpirun -n 8 hpcrun -o m -e CPUTIME -e PAPI_TOT_CYC -c f100 -t ./app",
		},
		{
			tag:  "cprofile",
			task: Task{Program: "fib.py", Output: "fib.prof", Interpreter: "python3"},
			want: "python3 -m cProfile -o fib.prof fib.py",
		},
		{
			tag:  "pyinstrument",
			task: Task{Program: "fib.py", Output: "fib.json", Args: []string{"30"}},
			want: "pyinstrument --renderer json --outfile fib.json fib.py 30",
		},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := Lookup(tt.tag)
			require.NoError(t, err)
			got, err := p.CommandLine(tt.task)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	p, err := Lookup("hpctoolkit")
	require.NoError(t, err)
	_, err = p.CommandLine(Task{Program: "./app"})
	require.Error(t, err)

	p, err = Lookup("caliper")
	require.NoError(t, err)
	require.Nil(t, p.CommandLine)
}
