// Package metrics provides metrics collector implementations.
package metrics
