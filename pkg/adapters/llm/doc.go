// Package llm provides LLM client implementations.
//
// The factory creates LLM clients based on the model a generation requests.
// Currently supports:
//   - Anthropic Claude (Messages API via the official SDK)
//   - Groq (OpenAI-compatible chat completions)
package llm
