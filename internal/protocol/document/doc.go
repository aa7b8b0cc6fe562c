// Package document implements the whole-document codec: one JSON object per
// message, button actions named through the deck action table, and the
// configuration carried as a list of button objects instead of raw bytes.
//
// The codec is deliberately more permissive than the frame codec. Unknown
// or missing action names resolve to deck.DefaultActionName and missing
// labels, colors and ids get defaults instead of failing the decode.
package document
