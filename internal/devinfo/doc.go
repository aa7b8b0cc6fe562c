// Package devinfo builds the transient device information snapshot:
// compile-time identity (firmware version, device name, button count)
// combined with runtime counters (uptime, free heap).
package devinfo
