// Package store owns the live button configuration. It validates every
// mutation, seals the CRC32 checksum and writes the full blob to the
// durable store before a mutating call returns.
package store
