// internal/lobbycode/lobbycode.go
package lobbycode

import (
	"math/rand"
	"strings"
)

// Alphabet is the set of characters lobby codes are drawn from. I, O, 0 and 1
// are left out because they are easy to confuse when a code is read off a
// screen or typed by hand.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the fixed length of every lobby code.
const Length = 6

// Generate returns a random candidate code. It is purely probabilistic;
// uniqueness is enforced by the service's insert-and-retry loop, not here.
func Generate() string {
	var b [Length]byte
	for i := range b {
		b[i] = Alphabet[rand.Intn(len(Alphabet))]
	}
	return string(b[:])
}

// Normalize maps user input to the canonical code form: surrounding
// whitespace stripped, upper-cased. Every code comparison in the system goes
// through this.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
