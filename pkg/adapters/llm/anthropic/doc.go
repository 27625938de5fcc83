// Package anthropic implements the LLM client port on top of the official
// Anthropic Go SDK's Messages API.
package anthropic
