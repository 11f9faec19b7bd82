package autoplace

import (
	"container/heap"

	"github.com/lisongmechlab/lsml-sub002/internal/loadout"
)

type node struct {
	lo    *loadout.Loadout
	ops   []Op
	score int
	seq   int
}

// queue is a max-heap on score. Equal scores pop in insertion order, which
// keeps the search deterministic.
type queue []*node

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].score != q[j].score {
		return q[i].score > q[j].score
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*node)) }

func (q *queue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

func (q *queue) push(n *node) { heap.Push(q, n) }
func (q *queue) pop() *node   { return heap.Pop(q).(*node) }
