package problemgen

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
)

// Generator builds problem queues. The random source is injected so queues
// are reproducible in tests; a mutex guards it for concurrent callers.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	cfg Config
}

// New creates a Generator. A nil rng gets a randomly seeded PCG source.
func New(rng *rand.Rand, cfg Config) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng, cfg: cfg}
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Placement returns the placement test for grade. Most problems come from
// 1-9 × 1-9 and the rest from 9-12 × 9-12, with no fact repeated unless a
// region runs out of unused facts. The order is shuffled.
func (g *Generator) Placement(grade string) []Problem {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.cfg.PlacementCount(grade)
	core := n * g.cfg.PlacementCorePercent / 100

	used := make(map[facts.Fact]bool, n)
	picked := g.sample(region(1, 9), core, used)
	picked = append(picked, g.sample(region(9, 12), n-core, used)...)
	g.shuffle(picked)

	return toProblems(picked)
}

// Practice returns an adaptive queue drawn from unlocked facts that are not
// yet mastered. Each band gets its share of the capped total, limited by how
// many candidates the band has. A short band is not topped up from the
// others. An empty queue means nothing is left to practice.
func (g *Generator) Practice(grid *mastery.Grid) []Problem {
	g.mu.Lock()
	defer g.mu.Unlock()

	buckets := make(map[facts.Band][]facts.Fact, len(facts.Bands))
	candidates := 0
	for _, c := range grid.Cells() {
		if c.IsLocked || c.Mastered() {
			continue
		}
		b := c.Fact.Band()
		buckets[b] = append(buckets[b], c.Fact)
		candidates++
	}
	if candidates == 0 {
		return nil
	}

	avail := make(map[facts.Band]int, len(buckets))
	for b, fs := range buckets {
		avail[b] = len(fs)
	}
	total := min(g.cfg.MaxPracticeProblems, candidates)
	targets := apportion(total, g.cfg.PracticeMix, avail)

	var picked []facts.Fact
	for _, b := range facts.Bands {
		bucket := buckets[b]
		g.shuffle(bucket)
		picked = append(picked, bucket[:min(targets[b], len(bucket))]...)
	}
	g.shuffle(picked)

	return toProblems(picked)
}

// sample draws count facts from pool, skipping facts already in used. When
// the pool runs out, it falls back to random facts from the pool that may
// repeat.
func (g *Generator) sample(pool []facts.Fact, count int, used map[facts.Fact]bool) []facts.Fact {
	if count <= 0 {
		return nil
	}

	fresh := make([]facts.Fact, 0, len(pool))
	for _, f := range pool {
		if !used[f] {
			fresh = append(fresh, f)
		}
	}
	g.shuffle(fresh)

	out := fresh[:min(count, len(fresh))]
	for _, f := range out {
		used[f] = true
	}
	for len(out) < count {
		out = append(out, pool[g.rng.IntN(len(pool))])
	}
	return out
}

func (g *Generator) shuffle(fs []facts.Fact) {
	g.rng.Shuffle(len(fs), func(i, j int) { fs[i], fs[j] = fs[j], fs[i] })
}

// apportion splits total across bands by percentage. Each band gets the
// floor of its share. The rounding leftovers go by largest remainder, ties
// to the easier band, and only to bands with candidates beyond their floor.
// A band's floor is never raised to make up for another band's shortfall.
func apportion(total int, mix, avail map[facts.Band]int) map[facts.Band]int {
	out := make(map[facts.Band]int, len(facts.Bands))
	order := make([]facts.Band, 0, len(facts.Bands))
	left := total
	for _, b := range facts.Bands {
		out[b] = total * mix[b] / 100
		left -= out[b]
		order = append(order, b)
	}

	rem := func(b facts.Band) int { return total * mix[b] % 100 }
	sort.SliceStable(order, func(i, j int) bool { return rem(order[i]) > rem(order[j]) })
	for _, b := range order {
		if left == 0 || rem(b) == 0 {
			break
		}
		if avail[b] > out[b] {
			out[b]++
			left--
		}
	}
	return out
}

// region returns every fact with both factors in [lo, hi].
func region(lo, hi int) []facts.Fact {
	out := make([]facts.Fact, 0, (hi-lo+1)*(hi-lo+1))
	for m := lo; m <= hi; m++ {
		for n := lo; n <= hi; n++ {
			out = append(out, facts.New(m, n))
		}
	}
	return out
}

func toProblems(fs []facts.Fact) []Problem {
	out := make([]Problem, len(fs))
	for i, f := range fs {
		out[i] = NewProblem(fmt.Sprintf("problem-%d", i), f)
	}
	return out
}
