package decimate

import "github.com/philipparndt/meshdash/pkg/geometry"

// candidate is a pending edge collapse. stampA/stampB record the vertex
// versions at push time; a candidate whose stamps no longer match is stale.
type candidate struct {
	cost           float64
	a, b           int
	stampA, stampB uint32
	target         geometry.Vector3
}

// candidateHeap implements container/heap ordered by cost, ties broken by
// vertex index so results are deterministic
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
