// Package writer implements batch writers for recorded feed data.
//
// Writers:
//   - Tick writer (ticks table)
//   - Order update writer (order_updates table)
//
// All writers use append-only semantics (never update, only insert).
// Rows carry the run id of the recorder instance that captured them.
package writer
