// Package deck owns the keypad configuration data model.
//
// Ownership boundary:
// - button action variants and the action name table
// - fixed binary layout of a button and of the whole configuration blob
// - storage checksum (CRC32) and structural validation
// - compiled-in default mapping
package deck
