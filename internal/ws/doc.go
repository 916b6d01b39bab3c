// Package ws implements the WebSocket transport for the chat backend.
//
// The Gateway tracks every live connection by its connection id and
// implements the chat.Transport send primitives. The Handler upgrades HTTP
// requests, resolves a typed identity from the request, runs the per
// connection read/write pumps and dispatches inbound frames to the presence
// coordinator and the message router.
package ws
