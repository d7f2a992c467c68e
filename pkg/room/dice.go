package room

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jwebster45206/d20"
)

// Roller rolls count dice of the given sides and adds the named modifiers.
type Roller interface {
	Roll(count, sides uint, modifiers map[string]int) (d20.RollOutcome, error)
}

// dice shares one seeded d20.Roller across rooms. d20.Roller is not safe for
// concurrent use on its own.
type dice struct {
	mu     sync.Mutex
	roller *d20.Roller
}

func newDice(seed uint64) *dice {
	return &dice{roller: d20.NewRoller(int64(seed))}
}

func (d *dice) Roll(count, sides uint, modifiers map[string]int) (d20.RollOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roller.Dice(count, sides).WithModifiers(modifiers).Roll()
}

// pick returns a uniform index in [0, n).
func (d *dice) pick(n int) int {
	if n <= 1 {
		return 0
	}
	out, err := d.Roll(1, uint(n), nil)
	if err != nil {
		return 0
	}
	return out.Value - 1
}

// NewSeed returns a high-entropy seed for the engine's dice.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
