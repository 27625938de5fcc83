// Package sqlite implements the generation catalog on an embedded SQLite
// database.
package sqlite
