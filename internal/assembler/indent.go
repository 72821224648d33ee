package assembler

import (
	"strings"

	"nl2code/internal/pyast"
)

var dedentKeywords = map[string]bool{
	"else":    true,
	"elif":    true,
	"except":  true,
	"finally": true,
	"case":    true,
}

func (a *Assembler) fixIndentation(code string) string {
	return FixIndentation(code, a.cfg.IndentWidth)
}

// FixIndentation rewrites leading whitespace to the given width.
// Nesting depth is tracked with a stack of the original indent widths:
// a block-opening line (trailing colon) pushes, returning to a shallower
// original width pops. A dedent keyword sitting at body depth pops one
// extra level so it lines up with the statement it belongs to. Lines
// inside triple-quoted strings pass through untouched.
func FixIndentation(code string, width int) string {
	if width <= 0 {
		width = 4
	}
	unit := strings.Repeat(" ", width)
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))

	var stack []int // original widths at which each open block's body sits
	opened := false // previous code line ended with a colon
	open := ""      // triple-quote state

	for _, line := range lines {
		wasInString := open != ""
		open = pyast.ScanTripleQuotes(line, open)
		if wasInString {
			out = append(out, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = append(out, "")
			continue
		}

		orig := originalIndent(line)
		if opened && (len(stack) == 0 || orig > stack[len(stack)-1]) {
			stack = append(stack, orig)
		}
		popped := false
		for len(stack) > 0 && orig < stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
			popped = true
		}
		// A dedent keyword still sitting at body depth was written one
		// level too deep; align it with its opening statement. When the
		// width pop already moved it, the depth is right as-is.
		if !popped && isDedentKeyword(trimmed) && len(stack) > 0 && orig >= stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
		}

		out = append(out, strings.Repeat(unit, len(stack))+trimmed)
		opened = strings.HasSuffix(stripTrailingComment(trimmed), ":")
	}
	return strings.Join(out, "\n")
}

// isDedentKeyword reports whether the line starts with a whole dedent
// keyword token. Identifiers that merely share a prefix (elsewhere,
// exception, finally_total) must not match.
func isDedentKeyword(trimmed string) bool {
	i := 0
	for i < len(trimmed) && isIdentChar(trimmed[i]) {
		i++
	}
	if !dedentKeywords[trimmed[:i]] {
		return false
	}
	return i == len(trimmed) || trimmed[i] == ':' || trimmed[i] == ' '
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// originalIndent measures leading whitespace with tabs as 4 columns, so
// tab-indented input maps onto the same depth scale as spaces.
func originalIndent(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

// stripTrailingComment removes an end-of-line comment so a trailing colon
// check sees the real statement end. Quote-aware enough for one line.
func stripTrailingComment(s string) string {
	inSingle, inDouble := false, false
	for i, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimSpace(s[:i])
			}
		}
	}
	return s
}
