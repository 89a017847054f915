package game

import "math/rand/v2"

// Roller produces the faces for a two-dice throw. Production uses a uniform
// RNG; tests inject fixed sequences.
type Roller interface {
	Roll() (die1, die2 int)
}

type randRoller struct{}

// NewRoller returns a uniformly random Roller.
func NewRoller() Roller {
	return randRoller{}
}

func (randRoller) Roll() (int, int) {
	return rand.IntN(6) + 1, rand.IntN(6) + 1
}

// FixedRoller replays a predetermined sequence of throws. Once the sequence
// is exhausted it repeats the last pair.
type FixedRoller struct {
	Throws [][2]int
	next   int
}

func (f *FixedRoller) Roll() (int, int) {
	if len(f.Throws) == 0 {
		return 1, 2
	}
	i := f.next
	if i >= len(f.Throws) {
		i = len(f.Throws) - 1
	}
	f.next++
	return f.Throws[i][0], f.Throws[i][1]
}
