// Package storage groups the state storage and catalog implementations.
//
// Live generation state lives in Redis (or in memory for tests); the
// SQLite catalog keeps a durable history of finished generations.
package storage
