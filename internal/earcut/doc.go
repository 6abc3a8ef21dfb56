// Package earcut triangulates simple polygons with holes by ear clipping.
//
// # Algorithm Overview
//
// The input is a flat coordinate array holding the outer ring followed by
// zero or more hole rings. Hole rings start at the vertex indices listed in
// holes. The triangulator:
//  1. Links the outer ring into a circular list with negative signed area
//     and each hole with the opposite winding.
//  2. Bridges every hole into the outer ring, leftmost hole first, using
//     Eberly's ray cast to find a visible outer vertex.
//  3. For polygons larger than 80 vertices, sorts nodes along a z-order
//     (Morton) curve so ear tests only scan nearby vertices.
//  4. Clips ears until two nodes remain. When a full sweep finds no ear it
//     escalates: filter collinear points, cure local self-intersections,
//     and finally split the polygon along any valid diagonal.
//
// Nodes live in an arena and reference each other by index, so removal is
// an O(1) relink and the structure holds no pointers.
//
// Output indices are vertex indices (coordinate offset divided by dim).
// A ring that cannot be triangulated yields fewer triangles, never an error.
package earcut
