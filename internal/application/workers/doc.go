// Package workers runs submitted generations on a bounded pool of
// goroutines fed by the event bus.
package workers
