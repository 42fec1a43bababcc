// Package wire implements the Vortex feed wire protocol.
//
// The feed server sends two kinds of frames:
//   - Binary frames carry market-data ticks: a uint16 LE packet count
//     followed by length-prefixed packets. Packet shape is determined
//     solely by its byte length (19 = LTP, 59 = OHLCV, 263 = full depth).
//   - Text frames carry JSON order updates.
//
// Outbound control messages (subscribe/unsubscribe) are JSON text frames.
//
// All multi-byte integers and floats are little-endian. The exchange code
// is a 7-byte ASCII field right-padded with NUL bytes.
package wire
