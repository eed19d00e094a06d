package dice

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

const (
	// Ten-sided dice, roll-and-keep ("XkY") as used at the table.
	DieFaces = 10

	MaxRolled = 10
)

// Result holds one resolved roll: every die thrown, the subset kept
// (highest values, sorted descending) and their sum.
type Result struct {
	Dice     []int `json:"dice"`
	KeptDice []int `json:"keptDice"`
	Total    int   `json:"total"`
}

// Roller produces roll-and-keep results from an injected random source,
// so tests can seed it deterministically. rand.Rand is not safe for
// concurrent use and every connection rolls on its own goroutine, so
// draws are serialized under mu.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller() *Roller {
	return &Roller{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func NewSeededRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Roll throws `rolled` d10 and keeps the `kept` highest.
// Callers clamp rolled to [1,10] and kept to [1,rolled] beforehand;
// Roll itself does not re-validate.
func (r *Roller) Roll(rolled, kept int) Result {
	dice := make([]int, rolled)
	r.mu.Lock()
	for i := range dice {
		dice[i] = r.rng.Intn(DieFaces) + 1
	}
	r.mu.Unlock()

	keptDice := make([]int, rolled)
	copy(keptDice, dice)
	sort.Sort(sort.Reverse(sort.IntSlice(keptDice)))
	keptDice = keptDice[:kept]

	total := 0
	for _, d := range keptDice {
		total += d
	}

	return Result{Dice: dice, KeptDice: keptDice, Total: total}
}

// Clamp bounds a requested roll to what the table allows. Anything
// outside [1,10] dice or [1,rolled] kept is pulled back in range.
func Clamp(rolled, kept int) (int, int) {
	if rolled < 1 {
		rolled = 1
	}
	if rolled > MaxRolled {
		rolled = MaxRolled
	}
	if kept < 1 {
		kept = 1
	}
	if kept > rolled {
		kept = rolled
	}
	return rolled, kept
}
