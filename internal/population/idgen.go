package population

import "container/heap"

// idHeap is a min-heap of released bot ids, used so the next released id is
// always reused before a fresh one is minted.
type idHeap []uint32

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(uint32)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// sequentialIDGenerator hands out dense bot ids starting at 1, reusing
// released ids before minting new ones so that a population which churns
// stays dense instead of growing unbounded ids.
type sequentialIDGenerator struct {
	lastGenerated uint32
	released      idHeap
}

func (g *sequentialIDGenerator) next() uint32 {
	if g.released.Len() == 0 {
		g.lastGenerated++
		return g.lastGenerated
	}
	return heap.Pop(&g.released).(uint32)
}

// release returns id to the pool. If id is the most recently minted one, the
// high-water mark retreats and any now-trailing released ids are absorbed
// into it, keeping the id space dense; otherwise id is just queued for
// reuse.
func (g *sequentialIDGenerator) release(id uint32) {
	if id != g.lastGenerated {
		heap.Push(&g.released, id)
		return
	}
	g.lastGenerated--
	for g.lastGenerated > 0 {
		idx := -1
		for i, r := range g.released {
			if r == g.lastGenerated {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		heap.Remove(&g.released, idx)
		g.lastGenerated--
	}
}
