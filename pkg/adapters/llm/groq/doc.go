// Package groq implements the LLM client port against Groq's
// OpenAI-compatible chat completions API.
package groq
