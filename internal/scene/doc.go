// Package scene post-processes LLM-generated Manim code before rendering.
//
// The pipeline is Normalize (markdown stripping, deprecated-call rewrites,
// import fixes, syntax normalization, validation) followed by ImproveQuality
// (spatial region constants, boundary clamping of move_to targets, fade-out
// cleanup for objects left on screen). The repair functions are applied by
// the renderer between attempts when Manim itself rejects the code.
package scene
