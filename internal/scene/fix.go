package scene

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoManimImport is returned when the payload contains no manim import
	// at all, which means the LLM did not produce runnable code.
	ErrNoManimImport = errors.New("could not find manim import statement in generated code")

	// ErrLaTeX is returned when the code uses Tex/MathTex objects, which
	// require a LaTeX installation the renderer does not have.
	ErrLaTeX = errors.New("generated code contains LaTeX objects which are not supported")

	// ErrMissingElements is returned when the code lacks the scene skeleton
	// the renderer invokes.
	ErrMissingElements = errors.New("generated code is missing required scene elements")
)

var (
	classRe     = regexp.MustCompile(`^class\s+\w+.*:`)
	methodRe    = regexp.MustCompile(`^\s+def\s+\w+\s*\(self.*\):`)
	texCallRe   = regexp.MustCompile(`(^|[^\w])(Tex|MathTex)\(`)
	mathUseRe   = regexp.MustCompile(`(^|[^\w.])math\.`)
	numpyUseRe  = regexp.MustCompile(`(^|[^\w.])np\.`)
)

// Normalize cleans up raw LLM output into code the renderer can attempt:
// strips markdown, trims prose before the first import, rewrites deprecated
// calls, fixes missing imports, removes stray module-level self references
// and guarantees a final wait. It rejects code that uses LaTeX objects or
// lacks the scene skeleton entirely.
func Normalize(code string) (string, error) {
	code = StripMarkdown(code)

	// Drop any explanatory prose before the first import.
	if !strings.HasPrefix(strings.TrimSpace(code), "from manim import") {
		idx := strings.Index(code, "from manim import")
		if idx == -1 {
			return "", ErrNoManimImport
		}
		code = code[idx:]
	}

	// ShowCreation was renamed to Create.
	code = strings.ReplaceAll(code, "ShowCreation(", "Create(")

	if texCallRe.MatchString(code) {
		return "", ErrLaTeX
	}

	code = fixImports(code)
	code = dropModuleLevelSelf(code)
	code = normalizeSyntax(code)
	code = ensureFinalWait(code)

	if err := Validate(code); err != nil {
		return "", err
	}

	return code, nil
}

// Validate checks that the code carries the scene skeleton the renderer
// invokes: the manim import, the CustomAnimation scene class and its
// construct method.
func Validate(code string) error {
	required := []string{
		"from manim import",
		"class CustomAnimation(Scene):",
		"def construct(self):",
	}
	for _, element := range required {
		if !strings.Contains(code, element) {
			return ErrMissingElements
		}
	}
	return nil
}

// fixImports prepends math/numpy imports when the code uses them without
// importing them.
func fixImports(code string) string {
	if mathUseRe.MatchString(code) && !strings.Contains(code, "import math") {
		code = "import math\n" + code
	}
	if numpyUseRe.MatchString(code) && !strings.Contains(code, "import numpy as np") {
		code = "import numpy as np\n" + code
	}
	return code
}

// dropModuleLevelSelf removes lines referencing self outside of a method
// body, a common LLM slip that is a NameError at import time.
func dropModuleLevelSelf(code string) string {
	lines := strings.Split(code, "\n")
	fixed := make([]string, 0, len(lines))

	inClass := false
	inMethod := false
	for _, line := range lines {
		switch {
		case classRe.MatchString(line):
			inClass = true
			inMethod = false
		case inClass && methodRe.MatchString(line):
			inMethod = true
		case strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t"):
			// Unindented line means we are back at module level.
			inClass = false
			inMethod = false
		}

		if !inMethod && strings.Contains(line, "self.") {
			continue
		}
		fixed = append(fixed, line)
	}

	return strings.Join(fixed, "\n")
}

// normalizeSyntax irons out characters that break the Python parser: curly
// quotes, mixed tabs and spaces, and non-ASCII bytes.
func normalizeSyntax(code string) string {
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", `'`, "’", `'`,
	)
	code = replacer.Replace(code)

	hasTabs := strings.Contains(code, "\t")
	hasSpaces := false
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(line, " ") {
			hasSpaces = true
			break
		}
	}
	if hasTabs && hasSpaces {
		code = strings.ReplaceAll(code, "\t", "    ")
	}

	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r < 128 {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// ensureFinalWait appends a closing self.wait(2) when the last statement in
// the construct body is not already a wait, so the final frame stays visible.
func ensureFinalWait(code string) string {
	lines := strings.Split(code, "\n")

	lastIdx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			lastIdx = i
			break
		}
	}
	if lastIdx == -1 {
		return code
	}

	last := lines[lastIdx]
	if strings.Contains(last, "self.wait") {
		return code
	}

	indent := last[:len(last)-len(strings.TrimLeft(last, " \t"))]
	if indent == "" {
		// Last statement sits at module level; wait belongs inside construct.
		return code
	}

	tail := append([]string{}, lines[lastIdx+1:]...)
	lines = append(lines[:lastIdx+1], indent+"self.wait(2)")
	lines = append(lines, tail...)
	return strings.Join(lines, "\n")
}
