// Package feed implements the Vortex live-feed session.
//
// The Session:
//   - Owns a single WebSocket connection to the wire endpoint
//   - Runs a ping/pong liveness watchdog (2.5s pings, 5s pong deadline)
//   - Reconnects on abnormal close with bounded exponential backoff
//   - Replays active subscriptions after every successful reconnect
//   - Decodes inbound frames and delivers events to a Listener
//
// Transport and retry delays are injectable so tests run without a
// network or real timers.
package feed
