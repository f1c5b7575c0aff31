package anon

import (
	"path"
	"strings"
	"unicode"
)

// Name takes an argument s that is expected to contain a module.func or a
// plain function name and obfuscates it, unless the module or the whole name
// is contained in keep. The obfuscation is done by replacing all upper and
// lower case letters with "X" and "x" respectively. Names in angle brackets
// such as "<program root>" are synthetic and kept as is.
func Name(s string, keep []string) string {
	if s == "" || isSynthetic(s) {
		return s
	}
	for _, k := range keep {
		if s == k {
			return s
		}
	}
	module, _, found := strings.Cut(s, ".")
	if !found {
		return obfuscate(s)
	}
	for _, k := range keep {
		if module == k {
			return s
		}
	}
	return obfuscate(s)
}

// Path takes a file path and obfuscates it. For file paths ending in a
// directory contained in keep followed by a single file, only the prefix of
// the path is obfuscated. The file extension is always kept intact. For
// example with keep = ["json"]:
//
//	/home/Bob/lib/json/decoder.py -> /xxxx/Xxx/xxx/json/decoder.py
//	/home/Bob/src/main.c          -> /xxxx/Xxx/xxx/xxxx.c
func Path(s string, keep []string) string {
	if s == "" {
		return s
	}

	var longest struct {
		length int
		prefix string
		suffix string
	}
	for _, pkg := range keep {
		sep := "/" + pkg
		i := strings.LastIndex(s, sep)
		if i == -1 {
			continue
		}
		prefix, suffix := s[:i], s[i+len(sep):]
		if len(pkg) > longest.length && len(suffix) > 1 && suffix[0] == '/' && !strings.Contains(suffix[1:], "/") {
			longest.length = len(pkg)
			longest.prefix = prefix
			longest.suffix = s[i:]
		}
	}
	if longest.length == 0 {
		return obfuscatePath(s)
	}
	return obfuscate(longest.prefix) + longest.suffix
}

func isSynthetic(s string) bool {
	return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
}

// obfuscatePath obfuscates s and keeps its file extension intact.
func obfuscatePath(s string) string {
	ext := path.Ext(s)
	if len(ext) == len(s) {
		ext = ""
	}
	return obfuscate(s[:len(s)-len(ext)]) + ext
}

// obfuscate replaces all upper and lower case letters with "X" and "x"
// respectively.
func obfuscate(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return 'X'
		case unicode.IsLower(r):
			return 'x'
		}
		return r
	}, s)
}
