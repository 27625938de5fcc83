// Package ports declares the interfaces between the application core and
// its adapters (LLM backends, storage, events, metrics, renderer).
package ports
