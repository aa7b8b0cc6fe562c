//go:build buttons15

package deck

// MaxButtons is the number of physical buttons on the board.
const MaxButtons = 15
