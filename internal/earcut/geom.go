package earcut

import "math"

// area returns twice the signed area of triangle p, q, r. Negative means
// the triangle winds the same way as the outer ring.
func (t *triangulator) area(p, q, r int) float64 {
	pn, qn, rn := &t.nodes[p], &t.nodes[q], &t.nodes[r]
	return (qn.y-pn.y)*(rn.x-qn.x) - (qn.x-pn.x)*(rn.y-qn.y)
}

func (t *triangulator) equals(p, q int) bool {
	return t.nodes[p].x == t.nodes[q].x && t.nodes[p].y == t.nodes[q].y
}

// intersects reports whether segments p1-q1 and p2-q2 intersect.
func (t *triangulator) intersects(p1, q1, p2, q2 int) bool {
	o1 := sign(t.area(p1, q1, p2))
	o2 := sign(t.area(p1, q1, q2))
	o3 := sign(t.area(p2, q2, p1))
	o4 := sign(t.area(p2, q2, q1))

	if o1 != o2 && o3 != o4 {
		return true
	}

	// collinear cases
	switch {
	case o1 == 0 && t.onSegment(p1, p2, q1):
		return true
	case o2 == 0 && t.onSegment(p1, q2, q1):
		return true
	case o3 == 0 && t.onSegment(p2, p1, q2):
		return true
	case o4 == 0 && t.onSegment(p2, q1, q2):
		return true
	}
	return false
}

// onSegment reports whether q lies within the bounding box of p-r, given
// that the three points are collinear.
func (t *triangulator) onSegment(p, q, r int) bool {
	pn, qn, rn := &t.nodes[p], &t.nodes[q], &t.nodes[r]
	return qn.x <= math.Max(pn.x, rn.x) && qn.x >= math.Min(pn.x, rn.x) &&
		qn.y <= math.Max(pn.y, rn.y) && qn.y >= math.Min(pn.y, rn.y)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// pointInTriangle reports whether p lies inside or on triangle a, b, c.
func pointInTriangle(ax, ay, bx, by, cx, cy, px, py float64) bool {
	return (cx-px)*(ay-py) >= (ax-px)*(cy-py) &&
		(ax-px)*(by-py) >= (bx-px)*(ay-py) &&
		(bx-px)*(cy-py) >= (cx-px)*(by-py)
}

// signedArea returns twice the signed area of the ring data[start:end].
func signedArea(data []float64, start, end, dim int) float64 {
	sum := 0.0
	for i, j := start, end-dim; i < end; i += dim {
		sum += (data[j] - data[i]) * (data[i+1] + data[j+1])
		j = i
	}
	return sum
}

// Deviation measures how far the triangulation's area is from the
// polygon's area, relative to the polygon's area. It returns 0 for an
// exact triangulation. Intended for verification only.
func Deviation(data []float64, holes []int, dim int, triangles []int) float64 {
	if dim < 2 {
		dim = 2
	}
	n := len(data) - len(data)%dim
	outerLen := n
	if len(holes) > 0 {
		outerLen = max(min(holes[0]*dim, n), 0)
	}

	polygonArea := math.Abs(signedArea(data, 0, outerLen, dim))
	for i, h := range holes {
		start := max(h*dim, 0)
		end := n
		if i < len(holes)-1 {
			end = min(holes[i+1]*dim, n)
		}
		if start < end {
			polygonArea -= math.Abs(signedArea(data, start, end, dim))
		}
	}

	trianglesArea := 0.0
	for i := 0; i+2 < len(triangles); i += 3 {
		a := triangles[i] * dim
		b := triangles[i+1] * dim
		c := triangles[i+2] * dim
		trianglesArea += math.Abs(
			(data[a]-data[c])*(data[b+1]-data[a+1]) -
				(data[a]-data[b])*(data[c+1]-data[a+1]))
	}

	if polygonArea == 0 && trianglesArea == 0 {
		return 0
	}
	return math.Abs((trianglesArea - polygonArea) / polygonArea)
}
