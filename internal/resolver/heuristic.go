package resolver

import (
	"context"
	"regexp"
	"strings"

	"nl2code/internal/pyast"
)

var (
	defNameRe    = regexp.MustCompile(`^(?:def|class)\s+([A-Za-z_]\w*)`)
	assignNameRe = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::[^=]+)?=[^=]`)
	importRe     = regexp.MustCompile(`^(?:import|from)\s+\S`)
)

// heuristicExtractor is the line-based fallback used when no syntax-tree
// parser is available. It only looks at top-level lines, which matches the
// tree extractor's scope.
type heuristicExtractor struct{}

func (heuristicExtractor) Extract(_ context.Context, content string) ([]string, []string, error) {
	var names, imports []string
	inString := ""
	for _, line := range strings.Split(content, "\n") {
		wasInString := inString != ""
		inString = pyast.ScanTripleQuotes(line, inString)
		if wasInString {
			continue
		}
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := defNameRe.FindStringSubmatch(trimmed); m != nil {
			names = append(names, m[1])
			continue
		}
		if importRe.MatchString(trimmed) {
			imports = append(imports, strings.Join(strings.Fields(trimmed), " "))
			continue
		}
		if m := assignNameRe.FindStringSubmatch(trimmed); m != nil {
			names = append(names, m[1])
		}
	}
	return names, imports, nil
}
