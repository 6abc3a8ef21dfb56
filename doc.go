// Package line2d draws large 2D polylines on the GPU.
//
// # Overview
//
// A [Line] holds a batch of passes. Each pass is one polyline with its own
// stroke, dash pattern, colors and optional polygon fill. Strokes are drawn
// as one instance per segment over a shared four-vertex corner strip, so a
// pass with a hundred thousand points is a single draw call.
//
// # Quick Start
//
//	dev := recording.New(800, 600) // or native.New(halDevice, halQueue)
//
//	l, err := line2d.New(dev)
//	if err != nil {
//	    return err
//	}
//	defer l.Destroy()
//
//	err = l.Render(line2d.Set(&line2d.Options{
//	    Positions: []float64{0, 0, 1, 1, 2, 0},
//	    Thickness: line2d.Ptr(4.0),
//	    Color:     &color.NRGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff},
//	    Dashes:    []float64{8, 4},
//	}))
//
// # Updates
//
// [Line.UpdateBatch] takes one [PassUpdate] per pass index: [Set] applies
// options, [Keep] leaves the pass alone and [Remove] destroys it. Only the
// data an update names is recomputed and uploaded, so a batch that restyles
// one pass does not touch the points of the others. Passes past the end of
// the batch are destroyed.
//
// Settings resolve in layers: the options of the update over everything
// applied to the pass before, over the defaults of the line.
//
// # Coordinates
//
// Positions are data coordinates. Range selects the data box mapped onto
// the viewport and defaults to the bounds of the positions. Points are
// normalized to their bounds and uploaded with a float32 residual, which
// keeps sub-pixel precision at zoom levels far beyond float32 range.
//
// A NaN coordinate hides the segments touching that point, breaking the
// line. Fill triangulation skips such points, and SplitNull fills each run
// between them as its own polygon.
//
// # Joins
//
// Strokes are mitered by default. [JoinRect] draws every segment as an
// independent rectangle, and [JoinAuto] does so for lines at most 2 pixels
// thick or with [MaxPoints] points or more. Lines zoomed past
// [PrecisionThreshold] always use rectangles. See [Classify].
//
// # Stacking
//
// Each pass gets a depth from its batch index, later passes nearer. Strokes
// are depth tested, so a later pass covers an earlier one and a stroke
// never blends twice where its own segments overlap. Overlay strokes skip
// the test and composite in draw order. Fills are never depth tested.
//
// # Devices
//
// A Line draws through a [gpucore.Device]. The native backend renders with
// gogpu/wgpu; the recording device keeps everything in memory for tests and
// CPU previews.
//
// # Logging
//
// line2d is silent by default. See [SetLogger].
package line2d
