// Package domain defines the core types shared across the service:
// generation lifecycle state, bus events and LLM request/response shapes.
package domain
