package model

import (
	"fmt"
	"strings"
)

const translateSystemPrompt = `You are a pseudocode-to-Python translator.
Convert the given instructions into clean, idiomatic Python 3 code.

Rules:
- Output ONLY Python code, inside a single fenced code block
- Use 4-space indentation
- Include necessary imports
- Do not invent behavior that is not described
- Prefer standard library over third-party packages
- Functions should have docstrings when the instruction describes their purpose`

const refineSystemPrompt = `You are a Python code repair assistant.
You receive Python code plus validator findings. Fix ONLY the reported
problems; keep everything else byte-for-byte identical where possible.
Output the complete corrected file inside a single fenced code block.`

// buildTranslatePrompt assembles the user prompt for a translate call.
func buildTranslatePrompt(instruction, context string) string {
	var sb strings.Builder
	if context != "" {
		sb.WriteString("Existing code for context (do not repeat it):\n```python\n")
		sb.WriteString(context)
		sb.WriteString("\n```\n\n")
	}
	sb.WriteString("Translate this pseudocode into Python:\n\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nPython code:")
	return sb.String()
}

// buildRefinePrompt assembles the user prompt for a refine call.
func buildRefinePrompt(code, errorContext string) string {
	return fmt.Sprintf(`The following Python code has validation problems.

--- VALIDATION FINDINGS ---
%s

--- CODE ---
%s

Output the corrected code:`, errorContext, code)
}

// ExtractCodeBlock extracts a fenced code block from a model response.
// When no fence is present the whole trimmed response is returned, since
// some models reply with raw code.
func ExtractCodeBlock(text, lang string) string {
	patterns := []string{
		"```" + lang + "\n",
		"```" + lang + "\r\n",
		"```\n",
	}
	for _, pattern := range patterns {
		if idx := strings.Index(text, pattern); idx != -1 {
			start := idx + len(pattern)
			end := strings.Index(text[start:], "```")
			if end != -1 {
				return strings.TrimSpace(text[start : start+end])
			}
		}
	}
	return strings.TrimSpace(text)
}
