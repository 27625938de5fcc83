// Package renderer invokes the Manim CLI to turn generated scene code into
// mp4 videos, with bounded retries that repair the code between attempts.
package renderer
