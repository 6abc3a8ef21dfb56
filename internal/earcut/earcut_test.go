package earcut

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func triangleArea(data []float64, tri []int) float64 {
	sum := 0.0
	for i := 0; i+2 < len(tri); i += 3 {
		a, b, c := tri[i]*2, tri[i+1]*2, tri[i+2]*2
		sum += math.Abs((data[b]-data[a])*(data[c+1]-data[a+1])-(data[c]-data[a])*(data[b+1]-data[a+1])) / 2
	}
	return sum
}

func TestTriangulateSingleTriangle(t *testing.T) {
	got := Triangulate([]float64{0, 0, 1, 0, 0, 1}, nil, 2)
	if diff := cmp.Diff([]int{1, 2, 0}, got); diff != "" {
		t.Errorf("Triangulate() mismatch (-want +got):\n%s", diff)
	}
}

func TestTriangulateSquareWithHole(t *testing.T) {
	data := []float64{
		0, 0, 10, 0, 10, 10, 0, 10, // outer
		4, 4, 6, 4, 6, 6, 4, 6, // hole
	}
	tri := Triangulate(data, []int{4}, 2)

	if got := len(tri) / 3; got != 8 {
		t.Errorf("triangle count = %d, want 8", got)
	}
	if got := triangleArea(data, tri); math.Abs(got-96) > 1e-9 {
		t.Errorf("triangle area = %v, want 96", got)
	}
	if d := Deviation(data, []int{4}, 2, tri); d != 0 {
		t.Errorf("Deviation() = %v, want 0", d)
	}
}

func TestTriangulateDegenerate(t *testing.T) {
	tests := []struct {
		name string
		data []float64
	}{
		{"empty", nil},
		{"single point", []float64{1, 1}},
		{"two points", []float64{0, 0, 1, 1}},
		{"collinear", []float64{0, 0, 1, 0, 2, 0}},
		{"collinear long", []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}},
		{"coincident", []float64{3, 3, 3, 3, 3, 3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Triangulate(tt.data, nil, 2); len(got) != 0 {
				t.Errorf("Triangulate(%v) = %v, want no triangles", tt.data, got)
			}
		})
	}
}

func TestTriangulateSteinerHole(t *testing.T) {
	data := []float64{
		0, 0, 10, 0, 10, 10, 0, 10,
		5, 5, // single point hole
	}
	tri := Triangulate(data, []int{4}, 2)
	if len(tri) == 0 || len(tri)%3 != 0 {
		t.Fatalf("Triangulate() = %v, want whole triangles", tri)
	}
	if d := Deviation(data, []int{4}, 2, tri); d > 1e-12 {
		t.Errorf("Deviation() = %v, want 0", d)
	}
	found := false
	for _, i := range tri {
		if i == 4 {
			found = true
		}
	}
	if !found {
		t.Errorf("Triangulate() = %v, steiner point 4 unused", tri)
	}
}

func TestTriangulateMultipleHoles(t *testing.T) {
	data := []float64{
		0, 0, 20, 0, 20, 20, 0, 20,
		2, 2, 6, 2, 6, 6, 2, 6,
		10, 10, 14, 10, 14, 14, 10, 14,
	}
	holes := []int{4, 8}
	tri := Triangulate(data, holes, 2)
	if got, want := triangleArea(data, tri), 400.0-16-16; math.Abs(got-want) > 1e-9 {
		t.Errorf("triangle area = %v, want %v", got, want)
	}
	if d := Deviation(data, holes, 2, tri); d > 1e-12 {
		t.Errorf("Deviation() = %v, want 0", d)
	}
}

func TestTriangulateWindingIndependent(t *testing.T) {
	cw := []float64{0, 0, 0, 10, 10, 10, 10, 0}
	ccw := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	for _, data := range [][]float64{cw, ccw} {
		tri := Triangulate(data, nil, 2)
		if len(tri) != 6 {
			t.Errorf("Triangulate(%v) = %v, want 2 triangles", data, tri)
		}
		if got := triangleArea(data, tri); got != 100 {
			t.Errorf("area(%v) = %v, want 100", data, got)
		}
	}
}

func TestTriangulateHigherDim(t *testing.T) {
	// third coordinate is ignored
	data := []float64{0, 0, 7, 10, 0, 7, 10, 10, 7, 0, 10, 7}
	tri := Triangulate(data, nil, 3)
	if len(tri) != 6 {
		t.Fatalf("Triangulate() = %v, want 2 triangles", tri)
	}
	for _, i := range tri {
		if i < 0 || i > 3 {
			t.Errorf("index %d out of range", i)
		}
	}
	if d := Deviation(data, nil, 3, tri); d != 0 {
		t.Errorf("Deviation() = %v, want 0", d)
	}
}

// starPolygon returns a simple polygon by perturbing the radii of points
// sorted by angle around the origin.
func starPolygon(rng *rand.Rand, n int, rMin, rMax float64) []float64 {
	data := make([]float64, 0, n*2)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * (float64(i) + rng.Float64()*0.5) / float64(n)
		r := rMin + rng.Float64()*(rMax-rMin)
		data = append(data, r*math.Cos(a), r*math.Sin(a))
	}
	return data
}

func TestTriangulateRandomPolygons(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := 3 + rng.Intn(300) // above 80 vertices uses the z-order index
		withHole := iter%2 == 1
		if withHole {
			// keeps every outer chord clear of the hole
			n += 16
		}
		data := starPolygon(rng, n, 0.5, 1)
		var holes []int
		if withHole {
			holes = []int{n}
			data = append(data, starPolygon(rng, 3+rng.Intn(20), 0.1, 0.3)...)
		}

		tri := Triangulate(data, holes, 2)
		if d := Deviation(data, holes, 2, tri); d > 1e-6 {
			t.Fatalf("iteration %d (n=%d holes=%v): Deviation() = %g", iter, n, holes, d)
		}
		for _, i := range tri {
			if i < 0 || i >= len(data)/2 {
				t.Fatalf("iteration %d: index %d out of range", iter, i)
			}
		}
	}
}

func TestTriangulateLargeCircle(t *testing.T) {
	const n = 5000
	data := make([]float64, 0, n*2)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / n
		data = append(data, 1e3*math.Cos(a), 1e3*math.Sin(a))
	}
	tri := Triangulate(data, nil, 2)
	if d := Deviation(data, nil, 2, tri); d > 1e-9 {
		t.Errorf("Deviation() = %g", d)
	}
}

func TestZOrder(t *testing.T) {
	tests := []struct {
		x, y float64
		want int32
	}{
		{0, 0, 0},
		{1, 0, 1},
		{0, 1, 2},
		{1, 1, 3},
		{2, 0, 4},
		{3, 3, 15},
	}
	for _, tt := range tests {
		if got := zOrder(tt.x, tt.y, 0, 0, 1); got != tt.want {
			t.Errorf("zOrder(%v, %v) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDeviationDetectsMissingTriangles(t *testing.T) {
	data := []float64{0, 0, 10, 0, 10, 10, 0, 10}
	if d := Deviation(data, nil, 2, []int{0, 1, 2}); math.Abs(d-0.5) > 1e-12 {
		t.Errorf("Deviation() = %v, want 0.5", d)
	}
	if d := Deviation(nil, nil, 2, nil); d != 0 {
		t.Errorf("Deviation(empty) = %v, want 0", d)
	}
}

func BenchmarkTriangulate(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	data := starPolygon(rng, 10000, 0.5, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Triangulate(data, nil, 2)
	}
}
