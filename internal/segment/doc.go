// Package segment lays out per-segment instance data for instanced line
// drawing.
//
// # Position Buffer
//
// One shared buffer carries count+3 vertices: a prepended "previous" stub,
// the real points, and two appended "next" stubs. Instance i reads four
// consecutive vertices as a sliding window:
//
//	prev = buf[i]   a = buf[i+1]   b = buf[i+2]   next = buf[i+3]
//
// so a single buffer bound four times at byte offsets 0, 8, 16 and 24 (with
// a stride of 8 bytes per vertex) supplies every neighbor coordinate
// without duplicating data.
//
// Open paths duplicate the first point at the head and the last point
// twice at the tail, which gives the end caps a zero-length neighbor.
// Closed paths wrap around so the seam is joined like any other vertex.
//
// # Color Buffer
//
// One RGBA entry per point plus a trailing duplicate, so the last segment's
// end color lookup stays in range.
//
// # Fill
//
// Fill triangulation substitutes NaN points with the last good point and
// remaps the resulting indices back to that point's slot. In split mode
// NaN-delimited runs are triangulated as independent polygons.
package segment
