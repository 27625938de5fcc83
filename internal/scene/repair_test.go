package scene

import (
	"strings"
	"testing"
)

func TestRepairSelfReferences(t *testing.T) {
	input := `from manim import *

class CustomAnimation(Scene):
    def construct(self):
        circle = Circle()
        self.play(Create(circle))
        self.wait(2)

self.play(FadeOut(circle))
`
	got := RepairSelfReferences(input)

	if strings.Contains(got, "\nself.play(FadeOut(circle))") {
		t.Fatalf("module-level self reference kept:\n%s", got)
	}
	if !strings.Contains(got, "        self.play(Create(circle))") {
		t.Fatalf("indented self reference lost:\n%s", got)
	}
}

func TestAggressiveReindentRebuildsIndentation(t *testing.T) {
	input := `Sure, here is the code:
from manim import *
import math
class CustomAnimation(Scene):
def construct(self):
circle = Circle()
self.play(Create(circle))
self.wait(2)
`
	got := AggressiveReindent(input, "")

	if !strings.HasPrefix(got, "from manim import *") {
		t.Fatalf("prose before the import kept:\n%s", got)
	}
	if !strings.Contains(got, "    def construct(self):") {
		t.Fatalf("construct not indented under the class:\n%s", got)
	}
	if !strings.Contains(got, "        self.play(Create(circle))") {
		t.Fatalf("body not indented under construct:\n%s", got)
	}
}

func TestAggressiveReindentCleansReportedLine(t *testing.T) {
	input := "from manim import *\n" +
		"class CustomAnimation(Scene):\n" +
		"def construct(self):\n" +
		"circle = Circle()```\n" +
		"self.wait(2)\n"

	got := AggressiveReindent(input, "SyntaxError: invalid syntax at line 4")

	if strings.Contains(got, "```") {
		t.Fatalf("fence on reported line kept:\n%s", got)
	}
}

func TestLastResortRebuildProducesRunnableScene(t *testing.T) {
	input := "from manim import *\nimport math\ntotal garbage {{{\n"

	got := LastResortRebuild(input)

	if err := Validate(got); err != nil {
		t.Fatalf("rebuilt scene invalid: %v\n%s", err, got)
	}
	if !strings.Contains(got, "import math") {
		t.Fatalf("original imports lost:\n%s", got)
	}
	if strings.Contains(got, "garbage") {
		t.Fatalf("broken body kept:\n%s", got)
	}
}

func TestLastResortRebuildDefaultsImports(t *testing.T) {
	got := LastResortRebuild("complete nonsense")

	if !strings.Contains(got, "from manim import *") {
		t.Fatalf("default imports missing:\n%s", got)
	}
	if err := Validate(got); err != nil {
		t.Fatalf("rebuilt scene invalid: %v", err)
	}
}
