package segment

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/gogpu/line2d/internal/earcut"
)

// Byte layout of the position and color buffers as consumed by the line
// programs. Positions are float32 pairs, colors are RGBA8.
const (
	PositionStride = 8
	PrevOffset     = 0
	AOffset        = 8
	BOffset        = 16
	NextOffset     = 24

	ColorStride  = 4
	AColorOffset = 0
	BColorOffset = 4
)

// ErrNotEnoughColors is returned when a per-point color list is shorter
// than the number of points.
var ErrNotEnoughColors = errors.New("segment: not enough colors for points")

// Positions builds the padded position data for a polyline.
//
// raw holds the original coordinates and is only used to detect a closed
// path whose last point repeats the first. norm holds the same points after
// normalization; the output is built from it. The returned count is the
// number of segment instances to draw: the point count, minus one for a
// closed path with coincident endpoints.
//
// The output always holds count+3 vertices (len == 2*points+6).
func Positions(raw, norm []float64, closed bool) ([]float64, int) {
	count := len(norm) / 2
	data := make([]float64, count*2+6)
	if count == 0 {
		return data, 0
	}
	n := norm[:count*2]

	// a one-point ring has nothing to wrap to
	if count < 2 {
		closed = false
	}
	coincident := closed && len(raw) >= count*2 &&
		raw[0] == raw[count*2-2] && raw[1] == raw[count*2-1]

	// head stub: rotate the first join for closed paths
	switch {
	case coincident:
		copy(data[0:2], n[count*2-4:count*2-2])
	case closed:
		copy(data[0:2], n[count*2-2:count*2])
	default:
		copy(data[0:2], n[0:2])
	}

	copy(data[2:], n)

	tail := data[count*2+2:]
	switch {
	case coincident:
		// the repeated last point already closes the ring; the seam segment
		// continues into point 1
		copy(tail[0:2], n[2:4])
		copy(tail[2:4], n[2:4])
		count--
	case closed:
		copy(tail[0:2], n[0:2])
		copy(tail[2:4], n[2:4])
	default:
		last := n[count*2-2 : count*2]
		copy(tail[0:2], last)
		copy(tail[2:4], last)
	}

	return data, count
}

// SolidColors returns count+1 copies of c as RGBA8 bytes.
func SolidColors(count int, c color.NRGBA) []byte {
	data := make([]byte, count*4+4)
	for i := 0; i <= count; i++ {
		putColor(data[i*4:], c)
	}
	return data
}

// Colors returns per-point colors as RGBA8 bytes followed by a copy of the
// first color. It fails if colors holds fewer than count entries.
func Colors(count int, colors []color.NRGBA) ([]byte, error) {
	if len(colors) < count {
		return nil, fmt.Errorf("%w: %d colors, %d points", ErrNotEnoughColors, len(colors), count)
	}
	data := make([]byte, count*4+4)
	for i := 0; i < count; i++ {
		putColor(data[i*4:], colors[i])
	}
	if len(colors) > 0 {
		putColor(data[count*4:], colors[0])
	}
	return data, nil
}

func putColor(dst []byte, c color.NRGBA) {
	dst[0], dst[1], dst[2], dst[3] = c.R, c.G, c.B, c.A
}

// FillTriangles triangulates the first count points of positions for
// polygon fill. holes lists the point index at which each hole ring
// starts. When splitNull is set, runs separated by NaN points are
// triangulated independently and concatenated.
//
// NaN points are replaced by the last good point for triangulation and any
// index referencing them is remapped to that point, so every returned index
// refers to a point that is actually displayed. Leading NaN points use the
// first good point. Returns nil when there is no good point.
func FillTriangles(positions []float64, count int, holes []int, splitNull bool) []int {
	count = min(count, len(positions)/2)

	first := -1
	for i := 0; i < count; i++ {
		if !isNaNPoint(positions, i) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	pos := make([]float64, count*2)
	ids := make(map[int]int)
	lastID := first
	for i := 0; i < count; i++ {
		if isNaNPoint(positions, i) {
			pos[i*2] = positions[lastID*2]
			pos[i*2+1] = positions[lastID*2+1]
			ids[i] = lastID
			continue
		}
		lastID = i
		pos[i*2] = positions[i*2]
		pos[i*2+1] = positions[i*2+1]
	}

	holeBase := 0
	if len(holes) > 0 && holes[0] > 0 && holes[0] < count {
		holeBase = holes[0]
	} else {
		holes = nil
	}

	var triangles []int
	if splitNull {
		triangles = splitTriangles(pos, count, holes, holeBase, ids)
	} else {
		triangles = earcut.Triangulate(pos, holes, 2)
	}

	for i, e := range triangles {
		if id, ok := ids[e]; ok {
			triangles[i] = id
		}
	}
	return triangles
}

// splitTriangles triangulates every NaN-delimited run of the outer ring
// together with all holes.
func splitTriangles(pos []float64, count int, holes []int, holeBase int, ids map[int]int) []int {
	splits := make([]int, 0, len(ids)+2)
	for i := range ids {
		splits = append(splits, i)
	}
	// at least one segment
	if _, ok := ids[count-1]; !ok {
		splits = append(splits, count)
	}
	slices.Sort(splits)

	// runs never cross into the hole rings
	var holePos []float64
	if holeBase > 0 {
		i, _ := slices.BinarySearch(splits, holeBase)
		splits = append(splits[:i], holeBase)
		holePos = pos[holeBase*2:]
	}

	var out []int
	base := 0
	for _, split := range splits {
		seg := make([]float64, 0, (split-base)*2+len(holePos))
		seg = append(seg, pos[base*2:split*2]...)
		seg = append(seg, holePos...)

		var hole []int
		if len(holes) > 0 {
			hole = make([]int, len(holes))
			for i, h := range holes {
				hole[i] = h - holeBase + (split - base)
			}
		}

		for _, e := range earcut.Triangulate(seg, hole, 2) {
			if e+base < split {
				out = append(out, e+base)
			} else {
				out = append(out, e+base+holeBase-split)
			}
		}

		// skip the split point
		base = split + 1
	}
	return out
}

func isNaNPoint(positions []float64, i int) bool {
	return math.IsNaN(positions[i*2]) || math.IsNaN(positions[i*2+1])
}
