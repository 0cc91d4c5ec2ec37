// Package transport is a minimal Socket.IO v4 client running Engine.IO v4 over
// a WebSocket.
//
// A Socket dials once, performs the Engine.IO open and Socket.IO CONNECT
// handshake on the default namespace, answers heartbeats, and surfaces the
// connect, disconnect, connect_error, connect_timeout, error and named event
// signals through a Handlers value. Every handler runs on the socket's single
// reader goroutine, so handlers never run concurrently with each other.
// Reconnection, polling transports, acknowledgements, and binary attachments
// are not supported.
package transport
