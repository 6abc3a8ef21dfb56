package earcut

import (
	"cmp"
	"math"
	"slices"
)

// hashThreshold is the vertex count (times dim) above which ear tests use
// the z-order index.
const hashThreshold = 80

// nilNode marks an absent link.
const nilNode = -1

type node struct {
	i    int // coordinate offset in the input array
	x, y float64

	prev, next   int
	prevZ, nextZ int
	z            int32

	steiner bool
}

type triangulator struct {
	nodes     []node
	dim       int
	triangles []int

	minX, minY float64
	invSize    float64
}

// Triangulate returns triangle vertex indices for the polygon in data.
// holes lists the vertex index at which each hole ring starts. dim is the
// number of coordinates per vertex; values below 2 are treated as 2 and
// only the first two coordinates are used.
func Triangulate(data []float64, holes []int, dim int) []int {
	if dim < 2 {
		dim = 2
	}
	hasHoles := len(holes) > 0
	outerLen := len(data) - len(data)%dim
	if hasHoles {
		outerLen = max(min(holes[0]*dim, outerLen), 0)
	}

	t := &triangulator{
		nodes: make([]node, 0, len(data)/dim+2*len(holes)+8),
		dim:   dim,
	}
	outer := t.linkedList(data, 0, outerLen, true)
	if outer == nilNode || t.nodes[outer].next == t.nodes[outer].prev {
		return t.triangles
	}

	if hasHoles {
		outer = t.eliminateHoles(data, holes, outer)
	}

	if len(data) > hashThreshold*dim {
		minX, minY := data[0], data[1]
		maxX, maxY := minX, minY
		for i := dim; i < outerLen; i += dim {
			x, y := data[i], data[i+1]
			minX = math.Min(minX, x)
			minY = math.Min(minY, y)
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}
		size := math.Max(maxX-minX, maxY-minY)
		t.minX, t.minY = minX, minY
		if size != 0 {
			t.invSize = 32767 / size
		}
	}

	t.earcutLinked(outer, 0)
	return t.triangles
}

// linkedList builds a circular list from data[start:end] with the
// requested winding and returns its last node.
func (t *triangulator) linkedList(data []float64, start, end int, clockwise bool) int {
	last := nilNode
	if clockwise == (signedArea(data, start, end, t.dim) > 0) {
		for i := start; i < end; i += t.dim {
			last = t.insertNode(i, data[i], data[i+1], last)
		}
	} else {
		for i := end - t.dim; i >= start; i -= t.dim {
			last = t.insertNode(i, data[i], data[i+1], last)
		}
	}
	if last != nilNode && t.equals(last, t.nodes[last].next) {
		t.removeNode(last)
		last = t.nodes[last].next
	}
	return last
}

// filterPoints removes duplicate and collinear points between start and end.
func (t *triangulator) filterPoints(start, end int) int {
	if start == nilNode {
		return start
	}
	if end == nilNode {
		end = start
	}

	p := start
	for {
		again := false
		n := &t.nodes[p]
		if !n.steiner && (t.equals(p, n.next) || t.area(n.prev, p, n.next) == 0) {
			t.removeNode(p)
			p = n.prev
			end = p
			if p == t.nodes[p].next {
				break
			}
			again = true
		} else {
			p = n.next
		}
		if !again && p == end {
			break
		}
	}
	return end
}

// earcutLinked is the main ear slicing loop.
func (t *triangulator) earcutLinked(ear, pass int) {
	if ear == nilNode {
		return
	}
	if pass == 0 && t.invSize != 0 {
		t.indexCurve(ear)
	}

	stop := ear
	for t.nodes[ear].prev != t.nodes[ear].next {
		prev, next := t.nodes[ear].prev, t.nodes[ear].next

		var isEar bool
		if t.invSize != 0 {
			isEar = t.isEarHashed(ear)
		} else {
			isEar = t.isEar(ear)
		}
		if isEar {
			t.emit(prev, ear, next)
			t.removeNode(ear)

			// skipping the next vertex leads to less sliver triangles
			ear = t.nodes[next].next
			stop = ear
			continue
		}

		ear = next
		if ear == stop {
			switch pass {
			case 0:
				t.earcutLinked(t.filterPoints(ear, nilNode), 1)
			case 1:
				ear = t.cureLocalIntersections(t.filterPoints(ear, nilNode))
				t.earcutLinked(ear, 2)
			case 2:
				t.splitEarcut(ear)
			}
			return
		}
	}
}

func (t *triangulator) emit(a, b, c int) {
	t.triangles = append(t.triangles,
		t.nodes[a].i/t.dim,
		t.nodes[b].i/t.dim,
		t.nodes[c].i/t.dim,
	)
}

// isEar reports whether the triangle prev, ear, next is convex and holds no
// other polygon vertex.
func (t *triangulator) isEar(ear int) bool {
	a, c := t.nodes[ear].prev, t.nodes[ear].next
	if t.area(a, ear, c) >= 0 {
		return false // reflex
	}

	an, bn, cn := &t.nodes[a], &t.nodes[ear], &t.nodes[c]
	x0, y0, x1, y1 := triangleBox(an, bn, cn)

	for p := cn.next; p != a; p = t.nodes[p].next {
		pn := &t.nodes[p]
		if pn.x >= x0 && pn.x <= x1 && pn.y >= y0 && pn.y <= y1 &&
			pointInTriangle(an.x, an.y, bn.x, bn.y, cn.x, cn.y, pn.x, pn.y) &&
			t.area(pn.prev, p, pn.next) >= 0 {
			return false
		}
	}
	return true
}

// isEarHashed is isEar restricted to the z-order window of the triangle's
// bounding box.
func (t *triangulator) isEarHashed(ear int) bool {
	a, c := t.nodes[ear].prev, t.nodes[ear].next
	if t.area(a, ear, c) >= 0 {
		return false
	}

	an, bn, cn := &t.nodes[a], &t.nodes[ear], &t.nodes[c]
	x0, y0, x1, y1 := triangleBox(an, bn, cn)
	minZ := zOrder(x0, y0, t.minX, t.minY, t.invSize)
	maxZ := zOrder(x1, y1, t.minX, t.minY, t.invSize)

	blocks := func(p int) bool {
		pn := &t.nodes[p]
		return pn.x >= x0 && pn.x <= x1 && pn.y >= y0 && pn.y <= y1 &&
			p != a && p != c &&
			pointInTriangle(an.x, an.y, bn.x, bn.y, cn.x, cn.y, pn.x, pn.y) &&
			t.area(pn.prev, p, pn.next) >= 0
	}

	p, n := bn.prevZ, bn.nextZ

	// look for points inside the triangle in both directions
	for p != nilNode && t.nodes[p].z >= minZ && n != nilNode && t.nodes[n].z <= maxZ {
		if blocks(p) {
			return false
		}
		p = t.nodes[p].prevZ
		if blocks(n) {
			return false
		}
		n = t.nodes[n].nextZ
	}
	for p != nilNode && t.nodes[p].z >= minZ {
		if blocks(p) {
			return false
		}
		p = t.nodes[p].prevZ
	}
	for n != nilNode && t.nodes[n].z <= maxZ {
		if blocks(n) {
			return false
		}
		n = t.nodes[n].nextZ
	}
	return true
}

// cureLocalIntersections cuts off a triangle wherever segment (prev, p)
// crosses (next, next.next).
func (t *triangulator) cureLocalIntersections(start int) int {
	p := start
	for {
		a := t.nodes[p].prev
		pNext := t.nodes[p].next
		b := t.nodes[pNext].next

		if !t.equals(a, b) && t.intersects(a, p, pNext, b) &&
			t.locallyInside(a, b) && t.locallyInside(b, a) {
			t.emit(a, p, b)
			t.removeNode(p)
			t.removeNode(pNext)
			p, start = b, b
		}
		p = t.nodes[p].next
		if p == start {
			break
		}
	}
	return t.filterPoints(p, nilNode)
}

// splitEarcut looks for any valid diagonal, splits the polygon along it and
// triangulates both halves.
func (t *triangulator) splitEarcut(start int) {
	a := start
	for {
		for b := t.nodes[t.nodes[a].next].next; b != t.nodes[a].prev; b = t.nodes[b].next {
			if t.nodes[a].i != t.nodes[b].i && t.isValidDiagonal(a, b) {
				c := t.splitPolygon(a, b)

				a = t.filterPoints(a, t.nodes[a].next)
				c = t.filterPoints(c, t.nodes[c].next)

				t.earcutLinked(a, 0)
				t.earcutLinked(c, 0)
				return
			}
		}
		a = t.nodes[a].next
		if a == start {
			return
		}
	}
}

// eliminateHoles links every hole into the outer ring.
func (t *triangulator) eliminateHoles(data []float64, holes []int, outer int) int {
	queue := make([]int, 0, len(holes))
	for i, h := range holes {
		n := len(data) - len(data)%t.dim
		start := max(h*t.dim, 0)
		end := n
		if i < len(holes)-1 {
			end = min(holes[i+1]*t.dim, n)
		}
		if start >= end {
			continue
		}
		list := t.linkedList(data, start, end, false)
		if list == nilNode {
			continue
		}
		if list == t.nodes[list].next {
			t.nodes[list].steiner = true
		}
		queue = append(queue, t.leftmost(list))
	}

	slices.SortStableFunc(queue, func(a, b int) int {
		return cmp.Compare(t.nodes[a].x, t.nodes[b].x)
	})

	for _, hole := range queue {
		outer = t.eliminateHole(hole, outer)
	}
	return outer
}

func (t *triangulator) eliminateHole(hole, outer int) int {
	bridge := t.findHoleBridge(hole, outer)
	if bridge == nilNode {
		return outer
	}

	reverse := t.splitPolygon(bridge, hole)

	// filter collinear points around the cuts
	t.filterPoints(reverse, t.nodes[reverse].next)
	return t.filterPoints(bridge, t.nodes[bridge].next)
}

// findHoleBridge finds an outer vertex visible from the hole's leftmost
// vertex (David Eberly, "Triangulation by Ear Clipping").
func (t *triangulator) findHoleBridge(hole, outer int) int {
	hx, hy := t.nodes[hole].x, t.nodes[hole].y
	qx := math.Inf(-1)
	m := nilNode

	// find a segment intersected by a ray from the hole's leftmost point to
	// the left; segment's endpoint with lesser x will be the candidate
	p := outer
	for {
		pn, nn := &t.nodes[p], &t.nodes[t.nodes[p].next]
		if hy <= pn.y && hy >= nn.y && nn.y != pn.y {
			x := pn.x + (hy-pn.y)*(nn.x-pn.x)/(nn.y-pn.y)
			if x <= hx && x > qx {
				qx = x
				if pn.x < nn.x {
					m = p
				} else {
					m = pn.next
				}
				if x == hx {
					// hole touches outer segment
					return m
				}
			}
		}
		p = pn.next
		if p == outer {
			break
		}
	}
	if m == nilNode {
		return nilNode
	}

	// look for points inside the triangle of hole point, segment
	// intersection and endpoint; if there are none, m is the bridge,
	// otherwise pick the one with the smallest angle to the ray
	stop := m
	mx, my := t.nodes[m].x, t.nodes[m].y
	tanMin := math.Inf(1)

	ax, cx := qx, hx
	if hy < my {
		ax, cx = hx, qx
	}

	p = m
	for {
		pn := &t.nodes[p]
		if hx >= pn.x && pn.x >= mx && hx != pn.x &&
			pointInTriangle(ax, hy, mx, my, cx, hy, pn.x, pn.y) {
			tan := math.Abs(hy-pn.y) / (hx - pn.x)
			if t.locallyInside(p, hole) &&
				(tan < tanMin || (tan == tanMin &&
					(pn.x > t.nodes[m].x || (pn.x == t.nodes[m].x && t.sectorContainsSector(m, p))))) {
				m = p
				tanMin = tan
			}
		}
		p = pn.next
		if p == stop {
			break
		}
	}
	return m
}

// sectorContainsSector reports whether sector in vertex m contains sector
// in vertex p in the same coordinates.
func (t *triangulator) sectorContainsSector(m, p int) bool {
	return t.area(t.nodes[m].prev, m, t.nodes[p].prev) < 0 &&
		t.area(t.nodes[p].next, m, t.nodes[m].next) < 0
}

func (t *triangulator) leftmost(start int) int {
	p, left := start, start
	for {
		pn, ln := &t.nodes[p], &t.nodes[left]
		if pn.x < ln.x || (pn.x == ln.x && pn.y < ln.y) {
			left = p
		}
		p = pn.next
		if p == start {
			return left
		}
	}
}

// isValidDiagonal reports whether a diagonal between a and b lies inside
// the polygon without crossing any edge.
func (t *triangulator) isValidDiagonal(a, b int) bool {
	an, bn := &t.nodes[a], &t.nodes[b]
	if t.nodes[an.next].i == bn.i || t.nodes[an.prev].i == bn.i || t.intersectsPolygon(a, b) {
		return false
	}
	if t.locallyInside(a, b) && t.locallyInside(b, a) && t.middleInside(a, b) &&
		(t.area(an.prev, a, bn.prev) != 0 || t.area(a, bn.prev, b) != 0) {
		return true
	}
	// special zero-length case
	return t.equals(a, b) && t.area(an.prev, a, an.next) > 0 && t.area(bn.prev, b, bn.next) > 0
}

func (t *triangulator) intersectsPolygon(a, b int) bool {
	ai, bi := t.nodes[a].i, t.nodes[b].i
	p := a
	for {
		pn := &t.nodes[p]
		ni := t.nodes[pn.next].i
		if pn.i != ai && ni != ai && pn.i != bi && ni != bi && t.intersects(p, pn.next, a, b) {
			return true
		}
		p = pn.next
		if p == a {
			return false
		}
	}
}

// locallyInside reports whether the diagonal a-b leaves a into the
// polygon's interior.
func (t *triangulator) locallyInside(a, b int) bool {
	an := &t.nodes[a]
	if t.area(an.prev, a, an.next) < 0 {
		return t.area(a, b, an.next) >= 0 && t.area(a, an.prev, b) >= 0
	}
	return t.area(a, b, an.prev) < 0 || t.area(a, an.next, b) < 0
}

// middleInside reports whether the midpoint of a-b is inside the polygon.
func (t *triangulator) middleInside(a, b int) bool {
	inside := false
	px := (t.nodes[a].x + t.nodes[b].x) / 2
	py := (t.nodes[a].y + t.nodes[b].y) / 2
	p := a
	for {
		pn, nn := &t.nodes[p], &t.nodes[t.nodes[p].next]
		if (pn.y > py) != (nn.y > py) && nn.y != pn.y &&
			px < (nn.x-pn.x)*(py-pn.y)/(nn.y-pn.y)+pn.x {
			inside = !inside
		}
		p = pn.next
		if p == a {
			return inside
		}
	}
}

// splitPolygon links a and b with a bridge. If a and b are in the same
// ring the ring splits in two; if they are in different rings the rings
// merge. Returns the copy of b.
func (t *triangulator) splitPolygon(a, b int) int {
	a2 := t.newNode(t.nodes[a].i, t.nodes[a].x, t.nodes[a].y)
	b2 := t.newNode(t.nodes[b].i, t.nodes[b].x, t.nodes[b].y)
	an := t.nodes[a].next
	bp := t.nodes[b].prev

	t.nodes[a].next = b
	t.nodes[b].prev = a

	t.nodes[a2].next = an
	t.nodes[an].prev = a2

	t.nodes[b2].next = a2
	t.nodes[a2].prev = b2

	t.nodes[bp].next = b2
	t.nodes[b2].prev = bp

	return b2
}

func (t *triangulator) newNode(i int, x, y float64) int {
	t.nodes = append(t.nodes, node{
		i: i, x: x, y: y,
		prev: nilNode, next: nilNode,
		prevZ: nilNode, nextZ: nilNode,
	})
	return len(t.nodes) - 1
}

// insertNode creates a node and links it after last.
func (t *triangulator) insertNode(i int, x, y float64, last int) int {
	p := t.newNode(i, x, y)
	if last == nilNode {
		t.nodes[p].prev = p
		t.nodes[p].next = p
		return p
	}
	next := t.nodes[last].next
	t.nodes[p].next = next
	t.nodes[p].prev = last
	t.nodes[next].prev = p
	t.nodes[last].next = p
	return p
}

// removeNode unlinks p from both lists. p keeps its own links so callers
// can continue walking from it.
func (t *triangulator) removeNode(p int) {
	n := &t.nodes[p]
	t.nodes[n.next].prev = n.prev
	t.nodes[n.prev].next = n.next
	if n.prevZ != nilNode {
		t.nodes[n.prevZ].nextZ = n.nextZ
	}
	if n.nextZ != nilNode {
		t.nodes[n.nextZ].prevZ = n.prevZ
	}
}

func triangleBox(a, b, c *node) (x0, y0, x1, y1 float64) {
	x0 = min(a.x, b.x, c.x)
	y0 = min(a.y, b.y, c.y)
	x1 = max(a.x, b.x, c.x)
	y1 = max(a.y, b.y, c.y)
	return
}
