// Package dispatch routes decoded commands to the configuration store,
// the device info provider and the keypad, and answers every request
// with a well-formed response built by the codec the request arrived on.
package dispatch
