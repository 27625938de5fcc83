// Package prompts holds the system prompts and message builders for the
// three LLM calls the pipeline makes: prompt enhancement, narration script
// generation and Manim code generation. An optional YAML corpus of animation
// patterns can be appended to the code-generation system prompt.
package prompts
