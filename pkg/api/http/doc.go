// Package http provides the REST API for submitting and monitoring
// prompt-to-video generations, and serves the rendered artifacts.
package http
