package prompts

import (
	"fmt"
	"strings"
)

// CodegenSystem is the system prompt for Manim code generation.
const CodegenSystem = `You are an expert at generating Manim animation code.
Given a natural language prompt, you will generate Python code using Manim to create
beautiful and educational 2D animations. Follow these instructions EXACTLY:
1. ONLY return Python code with no explanations or additional text before or after
2. Do not include markdown code blocks or any other formatting
3. Do not include any statements like 'Here's the code', just start directly with the imports
4. Do not include triple backticks in your response anywhere
5. Ensure the code is fully functional and can run on its own
6. IMPORTANT: Do NOT use Tex or MathTex objects as they require LaTeX. Use Text instead.
7. Always include 'import math' if you need mathematical functions
8. Use Create() instead of ShowCreation() as it's deprecated in newer versions
9. CRITICAL: Always remove or fade out text and objects before adding new ones in the same area
10. CRITICAL: Be mindful of spatial composition - place elements with proper spacing and avoid overlap
11. CRITICAL: When explaining step-by-step concepts, use FadeOut or Transform to remove old elements before adding new ones
12. Always plan the visual space in advance by defining clear regions for different elements
13. When animating mathematical concepts, use a clean, organized layout with consistent positioning`

// NarrationSystem is the system prompt for narration script generation.
const NarrationSystem = `You are an expert educational content creator specializing in clear, engaging narration scripts for educational videos. Your task is to create a detailed narration script that explains complex concepts in an accessible, engaging manner.

USE CASE:
This script will be used as the narration for an educational animation. The script needs to align perfectly with a visual animation that will be generated to accompany it. Your script will guide the development of the animation and serve as the voiceover that explains the concepts as they appear visually.

REQUIREMENTS:
1. Write a COMPLETE, PROFESSIONAL narration script
2. Structure the script in clear sections (Introduction, Main Concepts, Conclusion)
3. Include timestamps or markers for key transition points
4. Write in a conversational, engaging tone appropriate for educational content
5. Explain complex concepts clearly with appropriate analogies
6. Include pauses for viewers to process visual information
7. Keep sentences concise for easier narration
8. Use a logical progression that builds understanding step-by-step
9. Include questions or points of reflection to engage viewers
10. End with a clear summary of key takeaways
11. IMPORTANT: Be COMPREHENSIVE and THOROUGH in your explanations - include all necessary details
12. Don't rush or abbreviate explanations - take the time needed to properly explain the concept

Focus on clarity, engagement, educational value, and COMPLETENESS.`

// EnhanceSystem is the system prompt for prompt enhancement.
const EnhanceSystem = `You are an expert at enhancing user prompts for educational animation generation.
Your task is to take a brief user prompt and expand it into a detailed, comprehensive instruction
that will result in a highly educational and thorough animation.

Here's what you need to do:
1. Identify the core concept or topic in the user's prompt
2. Add specific details about what aspects of the topic should be covered
3. Suggest visual elements that would enhance understanding
4. Specify a logical sequence for explaining the concept
5. Include suggestions for specific examples or analogies that could be used
6. Ensure the enhanced prompt asks for a complete, thorough explanation
7. Add guidance on what level of detail is appropriate

The goal is to transform a brief prompt like "explain photosynthesis" into a detailed prompt
that will guide the creation of a comprehensive, visually rich, and educational animation.`

// BuildEnhancement formats the user message for the prompt-enhancement call.
func BuildEnhancement(userPrompt string) string {
	return fmt.Sprintf(`Please enhance the following prompt for educational animation generation:

USER PROMPT: %s

Please create a detailed, comprehensive version of this prompt that will result in a thorough,
educational animation. The enhanced prompt should:

1. Specify what aspects of the topic should be covered
2. Suggest visual elements to include
3. Outline a logical sequence for explaining the concept
4. Include specific examples or analogies to use
5. Request a thorough and complete explanation
6. Provide guidance on the appropriate level of detail

ENHANCED PROMPT:`, userPrompt)
}

// BuildNarration formats the user message for the narration-script call.
func BuildNarration(prompt string) string {
	return fmt.Sprintf(`Create a detailed narration script for an educational video about:
%s

The script should:
1. Have a clear introduction that engages the viewer and explains what they'll learn
2. Break down the concept into clear, logical sections
3. Include timestamps or markers for transitions between key points
4. Use clear, accessible language to explain complex ideas
5. Have a compelling conclusion that summarizes key takeaways
6. Be COMPREHENSIVE and THOROUGH - don't limit the length or rush explanations
7. Cover all aspects of the topic in sufficient detail for full understanding

Format the script with timestamps like this:
[00:00] INTRODUCTION
(Introduction content here)

[00:30] FIRST CONCEPT
(First concept content here)

[01:15] SECOND CONCEPT
(Second concept content here)

[XX:XX] CONCLUSION
(Conclusion content here)
`, prompt)
}

// BuildCodegen formats the user message for the code-generation call.
// When narration is non-empty the prompt asks for animations aligned with
// its timestamps.
func BuildCodegen(prompt, narration string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a Manim animation for the following prompt:\n%s\n\n", prompt)

	if narration != "" {
		fmt.Fprintf(&b, "Here is the narration script that the animation should follow precisely:\n%s\n\n", narration)
	}

	b.WriteString(`Requirements:
1. Use the Scene class named 'CustomAnimation'
2. Include all necessary imports (always start with 'from manim import *', and include 'import math' if needed)
3. Use appropriate animations and transitions
4. Add text labels and explanations where needed
5. Ensure smooth animations with appropriate timing
6. Use color to enhance understanding
7. IMPORTANT: Create a COMPREHENSIVE and IN-DEPTH animation that fully explains the concept - don't rush
8. IMPORTANT: Do NOT use Tex, MathTex, or any LaTeX-dependent objects as they require LaTeX. Use Text instead.
9. IMPORTANT: Use Create() instead of ShowCreation() as the latter is deprecated
10. IMPORTANT: Do NOT include any self.wait() or other self references outside of the construct method
11. IMPORTANT: All code that references 'self' MUST be properly indented inside the construct method
12. Include a final self.wait(2) at the end of the construct method to allow viewing the final state
13. EXTREMELY IMPORTANT: Do NOT include any triple backticks or markdown formatting in your code
14. EXTREMELY IMPORTANT: Only return pure Python code that can be executed directly
15. CRITICALLY IMPORTANT: Ensure all text elements stay within visible screen boundaries
16. ESSENTIAL: Keep text positioning within a safe distance from screen edges:
    - Use max values of +/-6 for x or y coordinates to avoid text going off-screen
    - Implement boundary checking with helper functions if needed
    - When text has dynamic positioning, verify it stays visible

`)

	if narration != "" {
		b.WriteString(`17. EXTREMELY IMPORTANT: Ensure the animations align with the timestamps and sections in the narration script provided
18. Use appropriate self.wait() durations to match narration timing - typically:
   - 1-2 seconds for short sentences
   - 2-3 seconds for complex concepts
   - 0.5-1 seconds for transitions
19. Time visual elements to appear exactly when they would be mentioned in the narration
20. EXTREMELY IMPORTANT: Always clean up the scene by using FadeOut() for objects no longer needed
21. EXTREMELY IMPORTANT: Avoid text overlay problems by using text replacement techniques:
    - Use Transform(old_text, new_text) when updating related concepts
    - Use FadeOut(old_text) followed by FadeIn(new_text) when changing topics
    - Group related text elements to manage them together
22. Define clear spatial zones on the screen (e.g., title area, main demonstration area, explanation area)
23. Use shifting techniques (text.shift(UP/DOWN/LEFT/RIGHT)) to ensure elements don't overlap
24. When showing progressive steps, use consistent positioning and transitions to show the evolution
`)
	}

	b.WriteString(`
If you can't create a specific animation for this prompt, do NOT use a generic template. Instead, create a targeted animation that addresses the prompt as specifically as possible.

The code MUST start exactly like this:
from manim import *
import math  # Include this if you need mathematical functions
import numpy as np  # Include this if you need numpy

class CustomAnimation(Scene):
    def construct(self):
        # Define screen regions for better organization
        title_region = UP * 3.5
        main_region = ORIGIN
        explanation_region = DOWN * 3 + LEFT * 3
`)

	if narration != "" {
		b.WriteString("        # Your code here aligned with narration timestamps\n")
	} else {
		b.WriteString("        # Your code here\n")
	}

	return b.String()
}

// CodegenSystemWith appends the formatted pattern corpus to the base
// code-generation system prompt.
func CodegenSystemWith(patterns []Pattern) string {
	if len(patterns) == 0 {
		return CodegenSystem
	}

	var b strings.Builder
	b.WriteString(CodegenSystem)
	b.WriteString("\n\nHere are best practices for Manim animations that you MUST follow:\n")
	for _, p := range patterns {
		fmt.Fprintf(&b, "\n## %s\n%s\n", p.Name, p.Description)
		if p.Snippet != "" {
			fmt.Fprintf(&b, "\nExample:\n%s\n", p.Snippet)
		}
	}
	return b.String()
}
