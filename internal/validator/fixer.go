package validator

import (
	"context"
	"regexp"
	"strings"

	"nl2code/internal/assembler"
	"nl2code/internal/logging"
	"nl2code/internal/pyast"
)

// headerRe matches statements that must end with a colon.
var headerRe = regexp.MustCompile(
	`^\s*(if|elif|else|for|while|try|except|finally|with|def|class)\b`)

// ValidateAndFix runs the bounded repair loop: validate, apply the
// deterministic fixes, re-validate when they changed something, and only
// then fall back to the model refiner. It stops on the first valid result
// or a no-op fix and never returns an error; on internal failure the
// original code comes back with the last result.
func (v *Validator) ValidateAndFix(ctx context.Context, code string, maxAttempts int, useModelFixes bool) (fixed string, result *Result) {
	original := code
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryValidator).Error("fix loop panicked: %v", r)
			fixed = original
			if result == nil {
				result = &Result{Valid: false}
			}
		}
	}()

	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	result = v.ValidateSyntax(ctx, code)
	if result.Valid {
		return code, result
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		next := v.applyDeterministicFixes(code)
		if next != code {
			code = next
			result = v.ValidateSyntax(ctx, code)
			if result.Valid {
				logging.Get(logging.CategoryValidator).Info(
					"deterministic fixes repaired code on attempt %d", attempt+1)
				return code, result
			}
			continue
		}

		// Deterministic fixes are a no-op; hand over to the model once per
		// attempt, or give up.
		if !useModelFixes || v.refiner == nil {
			break
		}
		refined, err := v.refiner.RefineCode(ctx, code, formatErrorContext(result), v.opts)
		if err != nil || strings.TrimSpace(refined) == "" || refined == code {
			if err != nil {
				logging.Get(logging.CategoryValidator).Warn("model refiner failed: %v", err)
			}
			break
		}
		code = refined
		result = v.ValidateSyntax(ctx, code)
		if result.Valid {
			logging.Get(logging.CategoryValidator).Info(
				"model refiner repaired code on attempt %d", attempt+1)
			return code, result
		}
	}
	return code, result
}

// applyDeterministicFixes runs the cheap repairs: add missing trailing
// colons on block headers, then re-indent to the configured width. Colons
// go first so the reindenter sees the repaired headers as block openers.
func (v *Validator) applyDeterministicFixes(code string) string {
	code = addMissingColons(code)
	return assembler.FixIndentation(code, v.cfg.IndentWidth)
}

// addMissingColons appends a colon to control-flow/def/class headers that
// lack one. Lines with open brackets or explicit continuations are left
// alone, as are lines inside strings.
func addMissingColons(code string) string {
	lines := strings.Split(code, "\n")
	open := ""
	for i, line := range lines {
		wasInString := open != ""
		open = pyast.ScanTripleQuotes(line, open)
		if wasInString {
			continue
		}
		if !headerRe.MatchString(line) {
			continue
		}
		stripped := strings.TrimRight(stripComment(line), " \t")
		if stripped == "" || strings.HasSuffix(stripped, ":") ||
			strings.HasSuffix(stripped, "\\") || !bracketsBalanced(stripped) {
			continue
		}
		lines[i] = stripped + ":"
	}
	return strings.Join(lines, "\n")
}

func bracketsBalanced(s string) bool {
	depth := 0
	inSingle, inDouble := false, false
	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '(', '[', '{':
			if !inSingle && !inDouble {
				depth++
			}
		case ')', ']', '}':
			if !inSingle && !inDouble {
				depth--
			}
		}
	}
	return depth == 0
}

func stripComment(s string) string {
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
				return s[:i]
			}
		}
	}
	return s
}
