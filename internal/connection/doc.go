// Package connection implements the streaming session lifecycle.
//
// The package provides:
//   - Transport: a duplex frame channel, backed by gorilla/websocket
//   - Authenticate and Subscribe: the two handshake messages
//   - Monitor: heartbeat-bounded reads (liveness)
//   - Manager: the reconnecting state machine driving one session at a time
//
// Manager walks Connecting → Authenticating → Subscribing → Streaming and on
// disconnect goes through Backoff before the next attempt. Attempt numbers
// reset only once a session reaches Streaming. Exceeding MaxAttempts is the
// only fatal outcome; cancelling the context always ends Run with nil.
package connection
