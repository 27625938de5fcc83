package scene

import (
	"strings"
)

const fence = "```"

// StripMarkdown removes markdown artifacts that LLMs commonly wrap around
// generated code: opening/closing code fences, language tags and stray
// backtick runs at line boundaries.
func StripMarkdown(code string) string {
	// Fences at the very start and end of the payload
	code = strings.TrimPrefix(code, fence+"python\n")
	code = strings.TrimPrefix(code, fence+"\n")
	trimmed := strings.TrimRight(code, " \t\n")
	if strings.HasSuffix(trimmed, fence) {
		code = strings.TrimRight(trimmed[:len(trimmed)-len(fence)], " \t") + "\n"
	}

	lines := strings.Split(code, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		// Lines that are nothing but a fence
		if stripped == fence || stripped == fence+"python" {
			continue
		}

		// Fence glued to the end or the start of a code line
		if strings.HasSuffix(stripped, fence) {
			line = line[:strings.LastIndex(line, fence)]
		}
		if idx := strings.Index(strings.TrimSpace(line), fence); idx == 0 {
			line = line[strings.Index(line, fence)+len(fence):]
		}

		clean = append(clean, line)
	}

	return strings.Join(clean, "\n")
}
