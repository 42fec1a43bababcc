// Package database provides connection pool management for PostgreSQL.
//
// A recorder keeps a single pool holding the ticks and order_updates
// tables written by internal/writer.
package database
