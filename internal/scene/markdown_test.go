package scene

import (
	"strings"
	"testing"
)

func TestStripMarkdownFences(t *testing.T) {
	input := "```python\n" +
		"from manim import *\n" +
		"import math\n" +
		"\n" +
		"class CustomAnimation(Scene):\n" +
		"    def construct(self):\n" +
		"        circle = Circle()\n" +
		"        self.play(Create(circle))\n" +
		"```"

	got := StripMarkdown(input)

	if strings.Contains(got, "```") {
		t.Fatalf("fences not removed:\n%s", got)
	}
	if !strings.HasPrefix(strings.TrimSpace(got), "from manim import *") {
		t.Fatalf("expected code to start with the import, got:\n%s", got)
	}
	if !strings.Contains(got, "self.play(Create(circle))") {
		t.Fatalf("code body lost:\n%s", got)
	}
}

func TestStripMarkdownStandaloneFenceLine(t *testing.T) {
	input := "from manim import *\n" +
		"\n" +
		"class CustomAnimation(Scene):\n" +
		"    def construct(self):\n" +
		"        circle = Circle()\n" +
		"\n" +
		"```\n" +
		"\n" +
		"        square = Square()\n"

	got := StripMarkdown(input)

	if strings.Contains(got, "```") {
		t.Fatalf("standalone fence line not removed:\n%s", got)
	}
	if !strings.Contains(got, "square = Square()") {
		t.Fatalf("code after the fence lost:\n%s", got)
	}
}

func TestStripMarkdownKeepsPlainCode(t *testing.T) {
	input := "from manim import *\n\nclass CustomAnimation(Scene):\n    def construct(self):\n        self.wait(1)\n"
	if got := StripMarkdown(input); got != input {
		t.Fatalf("plain code was modified:\n%s", got)
	}
}
