// Command line2ddemo renders a random-walk polyline and a filled star with
// line2d and saves the CPU preview as a PNG.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/line2d"
	"github.com/gogpu/line2d/recording"
)

func main() {
	var (
		width     = flag.Int("width", 800, "image width")
		height    = flag.Int("height", 600, "image height")
		output    = flag.String("output", "line2d.png", "output file")
		points    = flag.Int("points", 200, "random walk length")
		seed      = flag.Uint64("seed", 1, "random seed")
		thickness = flag.Float64("thickness", 4, "stroke width in pixels")
		join      = flag.String("join", "miter", "join: miter, bevel, round, rect or auto")
		dashes    = flag.String("dash", "", "comma separated dash runs, e.g. 8,4")
		closed    = flag.Bool("close", false, "close the walk")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	line2d.SetLogger(logger)

	runs, err := parseDashes(*dashes)
	if err != nil {
		logger.Error("bad -dash", "err", err)
		os.Exit(2)
	}

	if err := run(*width, *height, *output, *points, *seed, *thickness, line2d.Join(*join), runs, *closed); err != nil {
		logger.Error("demo failed", "err", err)
		os.Exit(1)
	}
	logger.Info("demo saved", "file", *output, "width", *width, "height", *height)
}

func run(w, h int, output string, n int, seed uint64, thickness float64, join line2d.Join, dashes []float64, closed bool) error {
	dev := recording.New(w, h)
	l, err := line2d.New(dev)
	if err != nil {
		return err
	}
	defer l.Destroy()

	err = l.Render(
		line2d.Set(&line2d.Options{
			Positions: star(5, 1, 0.45),
			Fill:      &color.NRGBA{R: 0xff, G: 0xd7, A: 0xc0},
			Color:     &color.NRGBA{R: 0xb8, G: 0x86, B: 0x0b, A: 0xff},
			Thickness: line2d.Ptr(2.0),
			Close:     line2d.Ptr(true),
			Range:     &[4]float64{-1.2, -1.2, 1.2, 1.2},
			Viewport:  &line2d.Rect{X: w / 2, Y: 0, Width: w / 2, Height: h / 2},
		}),
		line2d.Set(&line2d.Options{
			Positions: randomWalk(n, seed),
			Colors:    gradient(n),
			Thickness: &thickness,
			Join:      join,
			Dashes:    dashes,
			Close:     &closed,
		}),
	)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dev.Rasterize()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", output, err)
	}
	return f.Close()
}

// randomWalk returns n points of a walk with normally distributed steps.
func randomWalk(n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pts := make([]float64, 0, n*2)
	y := 0.0
	for i := 0; i < n; i++ {
		y += r.NormFloat64()
		pts = append(pts, float64(i), y)
	}
	return pts
}

// gradient blends from blue to red along n points.
func gradient(n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	for i := range out {
		t := float64(i) / float64(max(n-1, 1))
		out[i] = color.NRGBA{R: uint8(255 * t), G: 0x40, B: uint8(255 * (1 - t)), A: 0xff}
	}
	return out
}

// star returns the outline of a star with k spikes.
func star(k int, outer, inner float64) []float64 {
	pts := make([]float64, 0, k*4)
	for i := 0; i < k*2; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := float64(i)*math.Pi/float64(k) + math.Pi/2
		pts = append(pts, r*math.Cos(a), r*math.Sin(a))
	}
	return pts
}

func parseDashes(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var runs []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		runs = append(runs, v)
	}
	return runs, nil
}
