package assembler

import (
	"regexp"
	"sort"
	"strings"
)

// knownStdlib covers the Python standard-library modules the assembler is
// likely to see. Anything absolute and not listed here sorts into the
// third-party bucket.
var knownStdlib = map[string]struct{}{
	"abc": {}, "argparse": {}, "asyncio": {}, "base64": {}, "bisect": {},
	"collections": {}, "contextlib": {}, "copy": {}, "csv": {}, "dataclasses": {},
	"datetime": {}, "decimal": {}, "enum": {}, "functools": {}, "glob": {},
	"hashlib": {}, "heapq": {}, "io": {}, "itertools": {}, "json": {},
	"logging": {}, "math": {}, "os": {}, "pathlib": {}, "pickle": {},
	"queue": {}, "random": {}, "re": {}, "shutil": {}, "socket": {},
	"sqlite3": {}, "string": {}, "struct": {}, "subprocess": {}, "sys": {},
	"tempfile": {}, "threading": {}, "time": {}, "traceback": {}, "typing": {},
	"unittest": {}, "urllib": {}, "uuid": {}, "warnings": {}, "__future__": {},
}

// autoImports maps a call pattern to the module it needs. An entry fires
// only when the pattern appears in the assembled body and the module is
// not already imported.
var autoImports = []struct {
	pattern *regexp.Regexp
	module  string
}{
	{regexp.MustCompile(`\bmath\.\w+`), "math"},
	{regexp.MustCompile(`\bos\.\w+`), "os"},
	{regexp.MustCompile(`\bsys\.\w+`), "sys"},
	{regexp.MustCompile(`\bre\.(match|search|sub|findall|compile|split)\b`), "re"},
	{regexp.MustCompile(`\bjson\.(dumps|loads|dump|load)\b`), "json"},
	{regexp.MustCompile(`\brandom\.\w+`), "random"},
	{regexp.MustCompile(`\btime\.(sleep|time|monotonic|perf_counter)\b`), "time"},
	{regexp.MustCompile(`\bdatetime\.\w+`), "datetime"},
	{regexp.MustCompile(`\bcollections\.\w+`), "collections"},
	{regexp.MustCompile(`\bitertools\.\w+`), "itertools"},
}

// buildImportSection dedupes imports and emits them in three ordered
// buckets: standard library, third-party, local. Each bucket is sorted
// and buckets are separated by one blank line.
func buildImportSection(imports []string, body string, autoImport bool) string {
	seen := make(map[string]struct{})
	var stdlib, thirdParty, local []string

	add := func(stmt string) {
		stmt = strings.Join(strings.Fields(stmt), " ")
		if stmt == "" {
			return
		}
		if _, dup := seen[stmt]; dup {
			return
		}
		seen[stmt] = struct{}{}
		switch classifyImport(stmt) {
		case "local":
			local = append(local, stmt)
		case "stdlib":
			stdlib = append(stdlib, stmt)
		default:
			thirdParty = append(thirdParty, stmt)
		}
	}

	for _, stmt := range imports {
		add(stmt)
	}

	if autoImport {
		imported := importedModules(imports)
		for _, ai := range autoImports {
			if _, have := imported[ai.module]; have {
				continue
			}
			if ai.pattern.MatchString(body) {
				add("import " + ai.module)
			}
		}
	}

	sort.Strings(stdlib)
	sort.Strings(thirdParty)
	sort.Strings(local)

	var buckets []string
	for _, b := range [][]string{stdlib, thirdParty, local} {
		if len(b) > 0 {
			buckets = append(buckets, strings.Join(b, "\n"))
		}
	}
	return strings.Join(buckets, "\n\n")
}

// classifyImport returns "stdlib", "third_party" or "local" for one
// normalized import statement. Relative imports are local.
func classifyImport(stmt string) string {
	mod := rootModule(stmt)
	if mod == "" {
		return "third_party"
	}
	if strings.HasPrefix(mod, ".") {
		return "local"
	}
	if _, ok := knownStdlib[mod]; ok {
		return "stdlib"
	}
	return "third_party"
}

// rootModule extracts the leading module of an import statement:
// "import os.path as p" -> "os", "from .util import x" -> ".util".
func rootModule(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) < 2 {
		return ""
	}
	mod := fields[1]
	if strings.HasPrefix(mod, ".") {
		return mod
	}
	if i := strings.Index(mod, "."); i > 0 {
		mod = mod[:i]
	}
	return strings.TrimSuffix(mod, ",")
}

// importedModules collects the root modules named by a set of import
// statements, for the auto-import duplicate check.
func importedModules(imports []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, stmt := range imports {
		if mod := rootModule(strings.Join(strings.Fields(stmt), " ")); mod != "" {
			out[strings.TrimPrefix(mod, ".")] = struct{}{}
		}
	}
	return out
}
