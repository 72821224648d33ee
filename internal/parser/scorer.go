package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// LineScorer scores a single line for code-likeness and language-likeness.
// Both scores are non-negative; their relative magnitude decides whether
// the line counts as code. Scoring is approximate by design.
type LineScorer interface {
	Score(line string) (code, lang float64)
}

// Classification thresholds on the ratio of code-scored lines in a block.
// Empirically chosen; injectable via Options for tuning.
const (
	DefaultCodeThreshold = 0.8
	DefaultLangThreshold = 0.2
)

var (
	assignRe = regexp.MustCompile(`^\s*[A-Za-z_][\w.\[\]'"]*\s*(=|\+=|-=|\*=|/=)\s*\S`)
	callRe   = regexp.MustCompile(`\b[A-Za-z_]\w*\s*\(`)
	defRe    = regexp.MustCompile(`^\s*(def|class)\s+[A-Za-z_]\w*`)
)

var pythonKeywords = map[string]struct{}{
	"def": {}, "class": {}, "import": {}, "from": {}, "return": {},
	"if": {}, "elif": {}, "else": {}, "for": {}, "while": {}, "in": {},
	"try": {}, "except": {}, "finally": {}, "with": {}, "as": {},
	"lambda": {}, "yield": {}, "pass": {}, "break": {}, "continue": {},
	"raise": {}, "global": {}, "nonlocal": {}, "assert": {}, "not": {},
	"and": {}, "or": {}, "None": {}, "True": {}, "False": {},
}

var imperativeWords = map[string]struct{}{
	"create": {}, "make": {}, "build": {}, "add": {}, "remove": {},
	"delete": {}, "display": {}, "show": {}, "calculate": {}, "compute": {},
	"get": {}, "set": {}, "check": {}, "loop": {}, "iterate": {},
	"define": {}, "store": {}, "read": {}, "write": {}, "ask": {},
	"prompt": {}, "generate": {}, "convert": {}, "sort": {}, "find": {},
	"take": {}, "give": {}, "use": {}, "call": {}, "validate": {},
}

var modalWords = map[string]struct{}{
	"should": {}, "must": {}, "need": {}, "needs": {}, "want": {},
	"will": {}, "would": {}, "can": {}, "could": {}, "shall": {},
}

var temporalWords = map[string]struct{}{
	"then": {}, "after": {}, "before": {}, "when": {}, "until": {},
	"first": {}, "next": {}, "finally": {}, "once": {}, "afterwards": {},
}

var articleWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "that": {}, "this": {}, "each": {},
	"every": {}, "its": {}, "with": {}, "into": {},
}

// DefaultScorer is the built-in dual heuristic scorer.
type DefaultScorer struct{}

// Score implements LineScorer.
func (DefaultScorer) Score(line string) (code, lang float64) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return 0, 0
	}

	words := strings.Fields(trimmed)

	// Code-likeness signals.
	if defRe.MatchString(line) {
		code += 3
	}
	for _, w := range words {
		bare := strings.Trim(w, "():,")
		if _, ok := pythonKeywords[bare]; ok {
			code++
		}
	}
	if assignRe.MatchString(line) {
		code += 2
	}
	if callRe.MatchString(trimmed) {
		code++
	}
	for _, op := range []string{"==", "!=", "<=", ">=", "->", "**", "//", "+=", "-="} {
		if strings.Contains(trimmed, op) {
			code++
		}
	}
	for _, d := range []string{"(", ")", "[", "]", "{", "}"} {
		if strings.Contains(trimmed, d) {
			code += 0.5
		}
	}
	if strings.HasSuffix(trimmed, ":") {
		code++
	}
	if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
		code += 0.5
	}

	// Language-likeness signals.
	for i, w := range words {
		lower := strings.ToLower(strings.Trim(w, ".,;!?"))
		if _, ok := imperativeWords[lower]; ok {
			if i == 0 {
				lang += 2 // imperative sentence opener
			} else {
				lang++
			}
		}
		if _, ok := modalWords[lower]; ok {
			lang++
		}
		if _, ok := temporalWords[lower]; ok {
			lang++
		}
		if _, ok := articleWords[lower]; ok {
			lang++
		}
	}
	if len(words) >= 4 && symbolDensity(trimmed) < 0.05 {
		lang += 2
	}
	if startsLikeSentence(trimmed) {
		lang++
	}
	if strings.HasSuffix(trimmed, ".") && !strings.Contains(trimmed, "(") {
		lang++
	}

	return code, lang
}

// symbolDensity is the fraction of non-alphanumeric, non-space runes.
func symbolDensity(s string) float64 {
	if s == "" {
		return 0
	}
	var symbols, total int
	for _, r := range s {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			symbols++
		}
	}
	return float64(symbols) / float64(total)
}

// startsLikeSentence reports capitalized prose: uppercase first letter
// followed by a lowercase word, no leading indentation markers.
func startsLikeSentence(s string) bool {
	runes := []rune(s)
	if len(runes) < 2 {
		return false
	}
	return unicode.IsUpper(runes[0]) && unicode.IsLower(runes[1])
}
