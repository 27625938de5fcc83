// Package websocket streams generation lifecycle events to web clients.
package websocket
