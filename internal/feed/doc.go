// Package feed pushes settlement events to WebSocket subscribers.
//
// The engine hands each committed settlement unit to the Hub, which fans
// it out to per-connection buffers. Subscribers receive book summaries,
// trades, and volume as they happen instead of polling for them. A
// subscriber that stops draining its buffer past the lag limit is
// disconnected rather than allowed to stall the broadcast path.
package feed
