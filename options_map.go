package line2d

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/text/cases"
)

// optionAliases maps every accepted spelling, case folded, to its option.
var optionAliases = buildAliases(map[string][]string{
	"positions":  {"positions", "points", "data", "coords"},
	"thickness":  {"thickness", "lineWidth", "lineWidths", "line-width", "width", "stroke-width", "strokeWidth"},
	"join":       {"lineJoin", "join", "type", "mode"},
	"miterLimit": {"miterLimit"},
	"dashes":     {"dash", "dashes", "dasharray", "dash-array"},
	"color":      {"color", "colour", "stroke", "colors", "colours", "stroke-color", "strokeColor"},
	"fill":       {"fill", "fill-color", "fillColor"},
	"opacity":    {"alpha", "opacity"},
	"overlay":    {"overlay", "crease", "overlap", "intersect"},
	"close":      {"closed", "close", "closed-path", "closePath"},
	"range":      {"range", "dataBox"},
	"viewport":   {"viewport", "viewBox"},
	"hole":       {"holes", "hole", "hollow"},
	"splitNull":  {"splitNull"},
})

func buildAliases(names map[string][]string) map[string]string {
	fold := cases.Fold()
	out := make(map[string]string)
	for canonical, aliases := range names {
		for _, a := range aliases {
			out[fold.String(a)] = canonical
		}
	}
	return out
}

// OptionsFromMap builds Options from loosely typed values keyed by any of
// the common spellings of each option, such as "lineWidth", "stroke-width"
// or "dasharray". Keys are matched case-insensitively; unknown keys are
// ignored.
//
// Colors may be color.Color values, CSS names, "#rgb", "#rrggbb" (with
// optional alpha digits) or "rgb(...)"/"rgba(...)" strings. A list of
// colors sets per-point colors. Positions may be a flat number list, a list
// of pairs, or a map with "x" and "y" lists. A nil positions value clears
// the pass; a nil or false fill disables filling.
func OptionsFromMap(m map[string]any) (*Options, error) {
	fold := cases.Fold()
	o := &Options{}
	for key, v := range m {
		name, ok := optionAliases[fold.String(key)]
		if !ok {
			continue
		}
		if err := setOption(o, name, v); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidOption, key, err)
		}
	}
	return o, nil
}

func setOption(o *Options, name string, v any) error {
	var err error
	switch name {
	case "positions":
		err = setPositions(o, v)
	case "thickness":
		o.Thickness, err = floatPtr(v)
	case "join":
		s, ok := v.(string)
		if !ok {
			if j, isJoin := v.(Join); isJoin {
				s, ok = string(j), true
			}
		}
		if !ok {
			return fmt.Errorf("join %T", v)
		}
		o.Join = Join(cases.Fold().String(s))
	case "miterLimit":
		o.MiterLimit, err = floatPtr(v)
	case "dashes":
		if v == nil {
			o.Dashes = []float64{}
			return nil
		}
		o.Dashes, err = floats(v)
	case "color":
		err = setColor(o, v)
	case "fill":
		if v == nil || v == false {
			o.Fill = &color.NRGBA{}
			return nil
		}
		var c color.NRGBA
		c, err = parseColor(v)
		o.Fill = &c
	case "opacity":
		o.Opacity, err = floatPtr(v)
	case "overlay":
		o.Overlay, err = boolPtr(v)
	case "close":
		o.Close, err = boolPtr(v)
	case "splitNull":
		o.SplitNull, err = boolPtr(v)
	case "range":
		var r []float64
		if r, err = floats(v); err == nil {
			if len(r) != 4 {
				return fmt.Errorf("range needs 4 values, got %d", len(r))
			}
			o.Range = &[4]float64{r[0], r[1], r[2], r[3]}
		}
	case "viewport":
		o.Viewport, err = parseRect(v)
	case "hole":
		o.Hole, err = ints(v)
	}
	return err
}

func setPositions(o *Options, v any) error {
	switch p := v.(type) {
	case nil:
		o.Positions = []float64{}
	case XY:
		o.PositionsXY = &p
	case *XY:
		o.PositionsXY = p
	case map[string]any:
		x, err := floats(p["x"])
		if err != nil {
			return fmt.Errorf("x: %w", err)
		}
		y, err := floats(p["y"])
		if err != nil {
			return fmt.Errorf("y: %w", err)
		}
		o.PositionsXY = &XY{X: x, Y: y}
	case [][2]float64:
		o.Positions = make([]float64, 0, len(p)*2)
		for _, pt := range p {
			o.Positions = append(o.Positions, pt[0], pt[1])
		}
	default:
		flat, err := floats(v)
		if err != nil {
			return err
		}
		o.Positions = flat
	}
	return nil
}

func setColor(o *Options, v any) error {
	var list []any
	switch c := v.(type) {
	case []color.NRGBA:
		o.Colors = c
		return nil
	case []string:
		for _, s := range c {
			list = append(list, s)
		}
	case []color.Color:
		for _, cc := range c {
			list = append(list, cc)
		}
	case []any:
		list = c
	default:
		col, err := parseColor(v)
		if err != nil {
			return err
		}
		o.Color = &col
		return nil
	}

	colors := make([]color.NRGBA, len(list))
	for i, item := range list {
		c, err := parseColor(item)
		if err != nil {
			return fmt.Errorf("color %d: %w", i, err)
		}
		colors[i] = c
	}
	o.Colors = colors
	return nil
}

// parseColor converts a color.Color or a CSS color string.
func parseColor(v any) (color.NRGBA, error) {
	switch c := v.(type) {
	case color.NRGBA:
		return c, nil
	case color.Color:
		return color.NRGBAModel.Convert(c).(color.NRGBA), nil
	case string:
		return parseColorString(c)
	case nil:
		return color.NRGBA{}, nil
	}
	return color.NRGBA{}, fmt.Errorf("color %T", v)
}

func parseColorString(s string) (color.NRGBA, error) {
	s = cases.Fold().String(strings.TrimSpace(s))
	switch {
	case s == "transparent" || s == "":
		return color.NRGBA{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseFunctional(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
}

func parseHex(h string) (color.NRGBA, error) {
	if len(h) == 3 || len(h) == 4 {
		var long strings.Builder
		for _, r := range h {
			long.WriteRune(r)
			long.WriteRune(r)
		}
		h = long.String()
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("bad hex color #%s", h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex color #%s: %w", h, err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// parseFunctional parses rgb(r, g, b) and rgba(r, g, b, a) with channels in
// 0..255 and alpha in 0..1.
func parseFunctional(s string) (color.NRGBA, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	parts := strings.FieldsFunc(s[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("bad color %q: %w", s, err)
		}
		ch[i] = f
	}
	clampByte := func(f float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(255, f))))
	}
	return color.NRGBA{
		R: clampByte(ch[0]),
		G: clampByte(ch[1]),
		B: clampByte(ch[2]),
		A: clampByte(ch[3] * 255),
	}, nil
}

// parseRect accepts a Rect, [width, height], [x0, y0, x1, y1] or a map with
// x, y, width and height.
func parseRect(v any) (*Rect, error) {
	switch r := v.(type) {
	case nil:
		return &Rect{}, nil
	case Rect:
		return &r, nil
	case *Rect:
		return r, nil
	case map[string]any:
		var out Rect
		for key, dst := range map[string]*int{"x": &out.X, "y": &out.Y, "width": &out.Width, "height": &out.Height} {
			if r[key] == nil {
				continue
			}
			f, err := toFloat(r[key])
			if err != nil {
				return nil, fmt.Errorf("viewport %s: %w", key, err)
			}
			*dst = int(f)
		}
		return &out, nil
	}
	f, err := floats(v)
	if err != nil {
		return nil, err
	}
	switch len(f) {
	case 2:
		return &Rect{Width: int(f[0]), Height: int(f[1])}, nil
	case 4:
		return &Rect{X: int(f[0]), Y: int(f[1]), Width: int(f[2] - f[0]), Height: int(f[3] - f[1])}, nil
	}
	return nil, fmt.Errorf("viewport needs 2 or 4 values, got %d", len(f))
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case nil:
		return math.NaN(), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func floatPtr(v any) (*float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func boolPtr(v any) (*bool, error) {
	switch b := v.(type) {
	case bool:
		return &b, nil
	case nil:
		return Ptr(false), nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	return Ptr(f != 0), nil
}

// floats flattens numbers, number lists and lists of pairs.
func floats(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []float32:
		out := make([]float64, len(s))
		for i, f := range s {
			out[i] = float64(f)
		}
		return out, nil
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, nil
	case [][]float64:
		out := []float64{}
		for _, pair := range s {
			out = append(out, pair...)
		}
		return out, nil
	case []any:
		out := make([]float64, 0, len(s))
		for i, item := range s {
			if nested, ok := item.([]any); ok {
				pair, err := floats(nested)
				if err != nil {
					return nil, fmt.Errorf("item %d: %w", i, err)
				}
				out = append(out, pair...)
				continue
			}
			f, err := toFloat(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, f)
		}
		return out, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	return []float64{f}, nil
}

func ints(v any) ([]int, error) {
	if s, ok := v.([]int); ok {
		return s, nil
	}
	f, err := floats(v)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(f))
	for i, x := range f {
		out[i] = int(x)
	}
	return out, nil
}
