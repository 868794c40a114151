// Package ws streams recent derived records to WebSocket clients.
//
// Hub broadcasts the newest records to every connected client on a fixed
// interval and immediately on connect. Slow clients whose send buffers fill
// are disconnected rather than allowed to stall the broadcast. Standard
// ping/pong keepalive detects dead connections.
package ws
