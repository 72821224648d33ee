package validator

import (
	"fmt"
	"regexp"
	"strings"

	"nl2code/internal/pyast"
)

var (
	mutableDefaultRe = regexp.MustCompile(`^\s*def\s+\w+\s*\([^)]*=\s*(\[\]|\{\}|(?:dict|list|set)\(\))`)
	divByNameRe      = regexp.MustCompile(`[\w)\]]\s*/\s*([a-z_]\w*)\b`)
	strAppendRe      = regexp.MustCompile(`^\s*\w+\s*\+=\s*(f?["']|str\()`)
	rangeLenRe       = regexp.MustCompile(`range\(\s*len\(`)
	loopHeaderRe     = regexp.MustCompile(`^\s*(for|while)\b`)
)

// runtimeRisks scans for patterns that tend to fail at run time.
func runtimeRisks(code string) []string {
	var out []string
	open := ""
	for i, line := range strings.Split(code, "\n") {
		wasInString := open != ""
		open = pyast.ScanTripleQuotes(line, open)
		if wasInString {
			continue
		}
		trimmed := strings.TrimSpace(line)

		if trimmed == "except:" {
			out = append(out, fmt.Sprintf(
				"line %d: bare except swallows every error including KeyboardInterrupt", i+1))
		}
		if mutableDefaultRe.MatchString(line) {
			out = append(out, fmt.Sprintf(
				"line %d: mutable default argument is shared across calls", i+1))
		}
		if m := divByNameRe.FindStringSubmatch(trimmed); m != nil && !strings.Contains(trimmed, "//") {
			out = append(out, fmt.Sprintf(
				"line %d: division by %q which may be zero", i+1, m[1]))
		}
	}
	return out
}

// performanceSmells flags common quadratic patterns.
func performanceSmells(code string) []string {
	var out []string
	lines := strings.Split(code, "\n")
	loopDepth := make([]int, 0, 4) // indents of open loops
	open := ""

	for i, line := range lines {
		wasInString := open != ""
		open = pyast.ScanTripleQuotes(line, open)
		if wasInString {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		indent := leadingWidth(line)
		for len(loopDepth) > 0 && indent <= loopDepth[len(loopDepth)-1] {
			loopDepth = loopDepth[:len(loopDepth)-1]
		}

		if len(loopDepth) > 0 && strAppendRe.MatchString(line) {
			out = append(out, fmt.Sprintf(
				"line %d: string concatenation with += inside a loop; collect parts and join", i+1))
		}
		if rangeLenRe.MatchString(trimmed) {
			out = append(out, fmt.Sprintf(
				"line %d: range(len(...)) iteration; prefer enumerate", i+1))
		}

		if loopHeaderRe.MatchString(line) {
			loopDepth = append(loopDepth, indent)
		}
	}
	return out
}

func leadingWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}
