package scene

import (
	"regexp"
	"strconv"
	"strings"
)

// boundaryThreshold is the maximum distance from the scene origin, in scene
// units, at which text remains fully visible at the default frame size.
const boundaryThreshold = 6

const boundaryHelperName = "ensure_within_boundaries"

var (
	constructRe  = regexp.MustCompile(`(?m)^(\s*)def construct\(self.*\):\s*$`)
	assignmentRe = regexp.MustCompile(`(?m)^\s*([A-Za-z_]\w*)\s*=\s*(Text|Circle|Square|Rectangle|RoundedRectangle|Polygon|Triangle|Ellipse|Line|Arrow|DoubleArrow|Dot|Star|Axes|NumberLine|VGroup)\(`)
)

// ImproveQuality applies the layout heuristics to generated scene code:
// spatial region constants, boundary clamping around move_to targets, and
// fade-out cleanup for objects shown but never removed. The pass is
// idempotent; applying it twice yields the same code.
func ImproveQuality(code string) string {
	code = injectRegions(code)
	code = injectBoundaryHelper(code)
	code = wrapMoveTargets(code)
	code = cleanupOrphans(code)
	return code
}

// constructBodyIndent returns the indentation of statements inside the
// construct method, or "" when no construct method exists.
func constructBodyIndent(code string) string {
	m := constructRe.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1] + "    "
}

// injectRegions adds the standard screen-region constants at the top of
// construct when the code defines none of its own.
func injectRegions(code string) string {
	if strings.Contains(code, "title_region") || strings.Contains(code, "main_region") {
		return code
	}
	indent := constructBodyIndent(code)
	if indent == "" {
		return code
	}

	block := strings.Join([]string{
		indent + "# Define screen regions for better organization",
		indent + "title_region = UP * 3.5",
		indent + "main_region = ORIGIN",
		indent + "explanation_region = DOWN * 3",
		"",
	}, "\n")

	return insertAfterConstruct(code, block)
}

// injectBoundaryHelper adds the position-clamping helper inside construct
// and makes sure numpy is imported, since the helper needs it.
func injectBoundaryHelper(code string) string {
	if strings.Contains(code, "def "+boundaryHelperName) {
		return code
	}
	indent := constructBodyIndent(code)
	if indent == "" {
		return code
	}

	if !strings.Contains(code, "import numpy as np") {
		code = "import numpy as np\n" + code
	}

	block := strings.Join([]string{
		indent + "boundary_threshold = " + strconv.Itoa(boundaryThreshold),
		"",
		indent + "def " + boundaryHelperName + "(position, threshold=boundary_threshold):",
		indent + "    if isinstance(position, np.ndarray):",
		indent + "        magnitude = np.linalg.norm(position)",
		indent + "        if magnitude > threshold:",
		indent + "            return position * (threshold / magnitude)",
		indent + "    return position",
		"",
	}, "\n")

	return insertAfterConstruct(code, block)
}

// insertAfterConstruct places block on the line following the construct
// definition.
func insertAfterConstruct(code, block string) string {
	loc := constructRe.FindStringIndex(code)
	if loc == nil {
		return code
	}
	lineEnd := strings.Index(code[loc[1]:], "\n")
	if lineEnd == -1 {
		return code + "\n" + block
	}
	at := loc[1] + lineEnd + 1
	return code[:at] + block + code[at:]
}

// wrapMoveTargets wraps every .move_to(...) argument in the boundary helper
// so off-screen positions are clamped back into view. Targets already
// wrapped are left untouched.
func wrapMoveTargets(code string) string {
	const marker = ".move_to("
	var b strings.Builder
	rest := code
	for {
		idx := strings.Index(rest, marker)
		if idx == -1 {
			b.WriteString(rest)
			break
		}
		argStart := idx + len(marker)
		argEnd := matchParen(rest, argStart)
		if argEnd == -1 {
			b.WriteString(rest)
			break
		}

		arg := rest[argStart:argEnd]
		b.WriteString(rest[:argStart])
		if strings.HasPrefix(strings.TrimSpace(arg), boundaryHelperName+"(") {
			b.WriteString(arg)
		} else {
			b.WriteString(boundaryHelperName + "(" + arg + ")")
		}
		b.WriteString(")")
		rest = rest[argEnd+1:]
	}
	return b.String()
}

// matchParen returns the index of the closing parenthesis matching the one
// that opened just before start, or -1 when the code is unbalanced.
func matchParen(s string, start int) int {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// cleanupOrphans finds mobjects that are shown but never removed and fades
// them out before the final wait, so stale text does not pile up on screen.
func cleanupOrphans(code string) string {
	// A scene-wide clear already removes everything.
	if strings.Contains(code, "self.clear()") {
		return code
	}

	var orphans []string
	seen := map[string]bool{}
	for _, m := range assignmentRe.FindAllStringSubmatch(code, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if !isShown(code, name) {
			continue
		}
		if isRemoved(code, name) {
			continue
		}
		orphans = append(orphans, name)
	}
	if len(orphans) == 0 {
		return code
	}

	lines := strings.Split(code, "\n")
	insertAt := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "self.wait") {
			insertAt = i
			break
		}
	}
	if insertAt == -1 {
		return code
	}

	indent := lines[insertAt][:len(lines[insertAt])-len(strings.TrimLeft(lines[insertAt], " \t"))]
	fades := make([]string, len(orphans))
	for i, name := range orphans {
		fades[i] = "FadeOut(" + name + ")"
	}
	cleanup := indent + "self.play(" + strings.Join(fades, ", ") + ")"

	tail := append([]string{}, lines[insertAt:]...)
	lines = append(lines[:insertAt], cleanup)
	lines = append(lines, tail...)
	return strings.Join(lines, "\n")
}

// isShown reports whether the named mobject is ever put on screen.
func isShown(code, name string) bool {
	for _, line := range strings.Split(code, "\n") {
		if !strings.Contains(line, "self.play(") && !strings.Contains(line, "self.add(") {
			continue
		}
		if containsIdent(line, name) {
			return true
		}
	}
	return false
}

// isRemoved reports whether the named mobject is ever taken off screen or
// consumed by a transform.
func isRemoved(code, name string) bool {
	removers := []string{"FadeOut(", "Uncreate(", "Unwrite(", "Transform(", "ReplacementTransform(", "self.remove("}
	for _, line := range strings.Split(code, "\n") {
		for _, r := range removers {
			if strings.Contains(line, r) && containsIdent(line, name) {
				return true
			}
		}
	}
	return false
}

// containsIdent reports whether line mentions name as a whole identifier.
func containsIdent(line, name string) bool {
	idx := 0
	for {
		i := strings.Index(line[idx:], name)
		if i == -1 {
			return false
		}
		i += idx
		before := byte(0)
		if i > 0 {
			before = line[i-1]
		}
		after := byte(0)
		if i+len(name) < len(line) {
			after = line[i+len(name)]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return true
		}
		idx = i + len(name)
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
