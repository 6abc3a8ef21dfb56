package earcut

// zOrder computes the Morton code of (x, y) inside the bounding box that
// starts at (minX, minY) and is scaled to 15 bits per axis by invSize.
func zOrder(x, y, minX, minY, invSize float64) int32 {
	ix := uint32(int32((x - minX) * invSize))
	iy := uint32(int32((y - minY) * invSize))
	return int32(spread(ix) | spread(iy)<<1)
}

// spread interleaves zero bits between the low 16 bits of v.
func spread(v uint32) uint32 {
	v = (v | v<<8) & 0x00FF00FF
	v = (v | v<<4) & 0x0F0F0F0F
	v = (v | v<<2) & 0x33333333
	v = (v | v<<1) & 0x55555555
	return v
}

// indexCurve assigns z-order values to every node of the ring and sorts
// the z-links.
func (t *triangulator) indexCurve(start int) {
	p := start
	for {
		n := &t.nodes[p]
		if n.z == 0 {
			n.z = zOrder(n.x, n.y, t.minX, t.minY, t.invSize)
		}
		n.prevZ = n.prev
		n.nextZ = n.next
		p = n.next
		if p == start {
			break
		}
	}

	t.nodes[t.nodes[p].prevZ].nextZ = nilNode
	t.nodes[p].prevZ = nilNode

	t.sortLinked(p)
}

// sortLinked sorts the z-linked list by z using bottom-up merge sort
// (Simon Tatham's linked list merge sort).
func (t *triangulator) sortLinked(list int) int {
	inSize := 1
	for {
		p := list
		list = nilNode
		tail := nilNode
		numMerges := 0

		for p != nilNode {
			numMerges++
			q := p
			pSize := 0
			for i := 0; i < inSize; i++ {
				pSize++
				q = t.nodes[q].nextZ
				if q == nilNode {
					break
				}
			}
			qSize := inSize

			for pSize > 0 || (qSize > 0 && q != nilNode) {
				var e int
				if pSize != 0 && (qSize == 0 || q == nilNode || t.nodes[p].z <= t.nodes[q].z) {
					e = p
					p = t.nodes[p].nextZ
					pSize--
				} else {
					e = q
					q = t.nodes[q].nextZ
					qSize--
				}

				if tail != nilNode {
					t.nodes[tail].nextZ = e
				} else {
					list = e
				}
				t.nodes[e].prevZ = tail
				tail = e
			}
			p = q
		}

		t.nodes[tail].nextZ = nilNode
		inSize *= 2
		if numMerges <= 1 {
			return list
		}
	}
}
