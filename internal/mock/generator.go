package mock

import (
	"math/rand/v2"
	"sync"

	"k8s.io/utils/clock"
)

// Rand is the source for the two cosmetic draws a snapshot makes: the service port and
// the node name annotated on each endpoint address
type Rand interface {
	IntN(n int) int
}

// Generator builds mock cluster snapshots. Everything except the Rand draws is a pure
// function of the cluster index and the time read from the clock. A Generator is safe
// for concurrent use when its Rand is
type Generator struct {
	clock clock.PassiveClock
	rand  Rand
}

// NewGenerator creates a generator. A nil clock means wall-clock time and a nil rand
// means the shared math/rand source
func NewGenerator(clk clock.PassiveClock, rnd Rand) *Generator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Generator{clock: clk, rand: rnd}
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRand returns a goroutine-safe Rand that yields the same sequence for the same seed
func NewSeededRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
