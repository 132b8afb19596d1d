package world

// Heading is a facing direction on the tile grid.
type Heading byte

const (
	North Heading = 1
	East  Heading = 2
	South Heading = 3
	West  Heading = 4
)

// Valid reports whether h is one of the four cardinal headings.
func (h Heading) Valid() bool {
	return h >= North && h <= West
}

// Delta returns the tile offset of one step in this heading. North is -Y.
func (h Heading) Delta() (dx, dy int) {
	switch h {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	}
	return 0, 0
}

// HeadingBetween returns the heading of a single step from (fx,fy) to an
// adjacent (tx,ty). Falls back to south for non-adjacent input.
func HeadingBetween(fx, fy, tx, ty int) Heading {
	switch {
	case ty < fy:
		return North
	case ty > fy:
		return South
	case tx > fx:
		return East
	case tx < fx:
		return West
	}
	return South
}

// Manhattan returns |dx|+|dy|.
func Manhattan(x1, y1, x2, y2 int) int {
	return abs(x1-x2) + abs(y1-y2)
}

// Chebyshev returns max(|dx|,|dy|); the visibility metric.
func Chebyshev(x1, y1, x2, y2 int) int {
	dx := abs(x1 - x2)
	dy := abs(y1 - y2)
	if dy > dx {
		return dy
	}
	return dx
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
