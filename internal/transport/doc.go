// Package transport carries raw request bytes to the dispatcher and the
// reply bytes back. The stream link stands in for the BLE command
// characteristic over TCP; the gateway exposes the same commands over
// HTTP for browser hosts.
package transport
