// Package server implements the real-time chat relay: a single shared room
// where clients join under a display name, exchange messages, see the online
// roster, and see typing indicators.
//
// The Hub processes every connection event on one goroutine, so the Registry
// and TypingTracker need no locking. Messages are broadcast in the order the
// hub receives them and persisted through the Relay's journal in that same
// order; a persistence failure never blocks or cancels a broadcast.
//
// The code is split into protocol, registry, presence, typing, relay, hub,
// client, and HTTP files.
package server
