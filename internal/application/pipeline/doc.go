// Package pipeline coordinates prompt-to-video generations: submission,
// stage-by-stage execution (enhance, narrate, generate code, render),
// status, cancellation and timeouts.
package pipeline
