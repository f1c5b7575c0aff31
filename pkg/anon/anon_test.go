package anon_test

import (
	"testing"

	"github.com/felixge/profileviewer/pkg/anon"
)

func TestName(t *testing.T) {
	keep := []string{"numpy", "MPI_Finalize", "encoding/json"}
	tests := []struct {
		name string
		s    string
		want string
	}{
		{
			name: "module.func: ok",
			s:    "numpy.dot",
			want: "numpy.dot",
		},

		{
			name: "pkg.func: ok",
			s:    "encoding/json.Marshal",
			want: "encoding/json.Marshal",
		},

		{
			name: "module.func: wrong prefix",
			s:    "mylib.numpy.dot",
			want: "xxxxx.xxxxx.xxx",
		},

		{
			name: "pkg.func: wrong suffix",
			s:    "encoding/json/foo.Marshal",
			want: "xxxxxxxx/xxxx/xxx.Xxxxxxx",
		},

		{
			name: "func: kept",
			s:    "MPI_Finalize",
			want: "MPI_Finalize",
		},

		{
			name: "func: replaced",
			s:    "solveLinear2D",
			want: "xxxxxXxxxxx2X",
		},

		{
			name: "synthetic",
			s:    "<program root>",
			want: "<program root>",
		},

		{
			name: "empty",
			s:    "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := anon.Name(tt.s, keep); got != tt.want {
				t.Errorf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	keep := []string{"runtime", "json"}
	tests := []struct {
		name string
		s    string
		want string
	}{
		{
			name: "path: ok",
			s:    "/runtime/proc.go",
			want: "/runtime/proc.go",
		},

		{
			name: "path: replace prefix",
			s:    "/home/Bob/src/runtime/proc.go",
			want: "/xxxx/Xxx/xxx/runtime/proc.go",
		},

		{
			name: "path: replace all",
			s:    "/home/Bob/src/runtime/foo/proc.go",
			want: "/xxxx/Xxx/xxx/xxxxxxx/xxx/xxxx.go",
		},

		{
			name: "path: python",
			s:    "/usr/lib/Python3/json/decoder.py",
			want: "/xxx/xxx/Xxxxxx3/json/decoder.py",
		},

		{
			name: "path: relative",
			s:    "src/main.c",
			want: "xxx/xxxx.c",
		},

		{
			name: "path: all tricky",
			s:    "/home/Bob/src/runtime",
			want: "/xxxx/Xxx/xxx/xxxxxxx",
		},

		{
			name: "path: all tricky 2",
			s:    "/home/Bob/src/runtime/",
			want: "/xxxx/Xxx/xxx/xxxxxxx/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := anon.Path(tt.s, keep); got != tt.want {
				t.Errorf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
