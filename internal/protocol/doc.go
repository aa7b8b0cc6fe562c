// Package protocol owns the command/response contract shared by every codec.
//
// Ownership boundary:
// - command and error code enums
// - Command and Response values
// - Codec contract implemented by frame (binary) and document (JSON)
// - decode error taxonomy and error -> wire code mapping
package protocol
