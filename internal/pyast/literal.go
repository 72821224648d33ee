package pyast

import "strings"

// ScanTripleQuotes tracks multi-line string state across one source line.
// open is the active delimiter entering the line ("" when none); the
// return value is the state after the line. Used by the line-oriented
// passes that must not treat string contents as code.
func ScanTripleQuotes(line, open string) string {
	i := 0
	for i < len(line) {
		if open != "" {
			idx := strings.Index(line[i:], open)
			if idx < 0 {
				return open
			}
			i += idx + len(open)
			open = ""
			continue
		}
		dq := strings.Index(line[i:], `"""`)
		sq := strings.Index(line[i:], "'''")
		switch {
		case dq < 0 && sq < 0:
			return ""
		case sq < 0 || (dq >= 0 && dq < sq):
			open = `"""`
			i += dq + 3
		default:
			open = "'''"
			i += sq + 3
		}
	}
	return open
}
