package rhscache

import "sync"

// Group is the set of workers that each own a shard of a distributed vector.
//
// AllReduceSum is a blocking collective: every worker in the group must call
// it the same number of times and in the same order. It returns the sum of v
// over all workers.
type Group interface {
	Size() int
	AllReduceSum(v int) int
}

// SingleWorker is the Group of a non-distributed vector.
type SingleWorker struct{}

// Size implements Group.
func (SingleWorker) Size() int { return 1 }

// AllReduceSum implements Group.
func (SingleWorker) AllReduceSum(v int) int { return v }

// LocalGroup is an in-process Group for workers running as goroutines of the
// same process. All workers share one *LocalGroup.
type LocalGroup struct {
	mu   sync.Mutex
	cond *sync.Cond

	size    int
	arrived int
	sum     int
	result  int
	gen     uint64 // completed reductions
}

// NewLocalGroup returns a LocalGroup of size workers.
func NewLocalGroup(size int) *LocalGroup {
	if size <= 0 {
		panic("rhscache: group size must be greater than 0")
	}

	g := &LocalGroup{size: size}
	g.cond = sync.NewCond(&g.mu)

	return g
}

// Size implements Group.
func (g *LocalGroup) Size() int { return g.size }

// AllReduceSum implements Group. It blocks until all workers of the group
// have contributed to the current reduction.
func (g *LocalGroup) AllReduceSum(v int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	gen := g.gen
	g.sum += v
	g.arrived++

	if g.arrived == g.size {
		g.result = g.sum
		g.sum = 0
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()

		return g.result
	}

	for gen == g.gen {
		g.cond.Wait()
	}

	return g.result
}

// allAgree reports whether ok holds on every worker of g.
func allAgree(g Group, ok bool) bool {
	n := 0
	if ok {
		n = 1
	}

	return g.AllReduceSum(n) == g.Size()
}
