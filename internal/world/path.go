package world

import "container/heap"

// WalkableFunc reports whether a tile can be stepped on by the seeker.
type WalkableFunc func(x, y int) bool

// DefaultPathDepth caps how many tiles a chase path may span.
const DefaultPathDepth = 20

type pathNode struct {
	x, y    int
	g, f    int
	parent  *pathNode
	heapIdx int
}

type nodeHeap []*pathNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].heapIdx = i; h[j].heapIdx = j }
func (h *nodeHeap) Push(x interface{}) { n := x.(*pathNode); n.heapIdx = len(*h); *h = append(*h, n) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}

// NextStep runs a 4-connected A* from (fx,fy) toward (tx,ty) and returns
// the first step of the path. The goal tile itself does not need to be
// walkable: adjacency to it is success, which is what a chasing NPC
// wants when its target stands on the goal. Returns ok=false when no
// path exists within maxDepth tiles.
func NextStep(fx, fy, tx, ty, maxDepth int, walkable WalkableFunc) (nx, ny int, h Heading, ok bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultPathDepth
	}
	if Manhattan(fx, fy, tx, ty) <= 1 {
		return fx, fy, HeadingBetween(fx, fy, tx, ty), false
	}

	start := &pathNode{x: fx, y: fy, g: 0, f: Manhattan(fx, fy, tx, ty)}
	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, start)
	seen := map[coord]*pathNode{{fx, fy}: start}

	var goal *pathNode
	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if Manhattan(cur.x, cur.y, tx, ty) <= 1 {
			goal = cur
			break
		}
		if cur.g >= maxDepth {
			continue
		}
		for _, d := range [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
			x, y := cur.x+d[0], cur.y+d[1]
			if !walkable(x, y) {
				continue
			}
			g := cur.g + 1
			c := coord{x, y}
			if prev, found := seen[c]; found {
				if g >= prev.g {
					continue
				}
				prev.g = g
				prev.f = g + Manhattan(x, y, tx, ty)
				prev.parent = cur
				heap.Fix(open, prev.heapIdx)
				continue
			}
			n := &pathNode{x: x, y: y, g: g, f: g + Manhattan(x, y, tx, ty), parent: cur}
			seen[c] = n
			heap.Push(open, n)
		}
	}
	if goal == nil || goal == start {
		return fx, fy, 0, false
	}
	// Walk back to the node right after the start.
	step := goal
	for step.parent != start {
		step = step.parent
	}
	return step.x, step.y, HeadingBetween(fx, fy, step.x, step.y), true
}
