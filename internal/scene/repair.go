package scene

import (
	"regexp"
	"strings"
)

var lineNumRe = regexp.MustCompile(`line (\d+)`)

// RepairSelfReferences drops every line that references self without being
// indented, the fix for "NameError: name 'self' is not defined" reported by
// the renderer.
func RepairSelfReferences(code string) string {
	lines := strings.Split(code, "\n")
	fixed := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, "self.") && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			continue
		}
		fixed = append(fixed, line)
	}
	return strings.Join(fixed, "\n")
}

// AggressiveReindent rebuilds the indentation of the whole scene from
// scratch, the fix for IndentationError and invalid-syntax failures. The
// renderer's stderr is consulted for the offending line so leftover fence
// characters there can be removed first.
func AggressiveReindent(code, stderr string) string {
	if idx := strings.Index(code, "from manim import"); idx > 0 {
		code = code[idx:]
	}

	lines := strings.Split(code, "\n")

	if m := lineNumRe.FindStringSubmatch(stderr); m != nil {
		n := 0
		for _, c := range m[1] {
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= len(lines) {
			lines[n-1] = strings.ReplaceAll(lines[n-1], fence, "")
		}
	}

	fixed := make([]string, 0, len(lines))
	classFound := false
	methodFound := false
	for _, line := range lines {
		clean := strings.TrimSpace(line)

		if clean == "" {
			fixed = append(fixed, "")
			continue
		}
		if clean == fence || clean == fence+"python" {
			continue
		}

		switch {
		case strings.HasPrefix(clean, "from ") || strings.HasPrefix(clean, "import "):
			fixed = append(fixed, clean)
		case strings.HasPrefix(clean, "class CustomAnimation"):
			classFound = true
			methodFound = false
			fixed = append(fixed, clean)
		case classFound && strings.HasPrefix(clean, "def construct"):
			methodFound = true
			fixed = append(fixed, "    "+clean)
		case methodFound:
			fixed = append(fixed, "        "+clean)
		case classFound:
			fixed = append(fixed, "    "+clean)
		default:
			fixed = append(fixed, clean)
		}
	}

	return strings.Join(fixed, "\n")
}

// LastResortRebuild salvages the imports and scene skeleton from broken code
// and swaps the construct body for a minimal animation that is guaranteed to
// render. Used only after every other repair has failed.
func LastResortRebuild(code string) string {
	var imports []string
	for _, line := range strings.Split(code, "\n") {
		clean := strings.TrimSpace(line)
		if strings.HasPrefix(clean, "import ") || strings.HasPrefix(clean, "from ") {
			imports = append(imports, clean)
		}
	}
	if len(imports) == 0 {
		imports = []string{"from manim import *", "import numpy as np", "import math"}
	}

	body := []string{
		"class CustomAnimation(Scene):",
		"    def construct(self):",
		`        title = Text("Simplified Animation")`,
		"        self.play(Write(title))",
		"        self.wait(2)",
		"        self.play(FadeOut(title))",
		"        self.wait(1)",
	}

	return strings.Join(imports, "\n") + "\n\n" + strings.Join(body, "\n") + "\n"
}
