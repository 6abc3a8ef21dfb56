package line2d

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/line2d/gpucore"
)

// Line draws a batch of polylines, called passes, on one device.
//
// Passes are addressed by their index in the last batch. Updates are
// incremental: a pass is only re-uploaded for the settings an update
// names.
//
// Line is not safe for concurrent use.
type Line struct {
	dev         gpucore.Device
	registry    *gpucore.Registry
	ownRegistry bool
	defaults    Options
	logger      *slog.Logger

	passes    []*pass
	destroyed bool
}

// New creates a line drawing on dev. The line programs are compiled on dev
// unless a shared registry already holds them.
//
// New fails with ErrInstancingUnsupported when dev cannot draw instanced
// geometry.
func New(dev gpucore.Device, opts ...Option) (*Line, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if !dev.Capabilities().Instancing {
		return nil, ErrInstancingUnsupported
	}

	o := defaultLineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := Logger()
	propagateLogger(dev, logger)

	l := &Line{
		dev:      dev,
		registry: o.registry,
		defaults: o.defaults,
		logger:   logger,
	}
	if l.registry == nil {
		l.registry = gpucore.NewRegistry()
		l.registry.SetLogger(logger)
		l.ownRegistry = true
	}

	if _, err := l.registry.Programs(dev); err != nil {
		if l.ownRegistry {
			l.registry.Close()
		}
		return nil, fmt.Errorf("line2d: %w", err)
	}
	return l, nil
}

// Update applies o to the first pass and removes every other pass.
// A nil o does nothing.
func (l *Line) Update(o *Options) error {
	if o == nil {
		return nil
	}
	return l.UpdateBatch([]PassUpdate{Set(o)})
}

// UpdatePositions replaces the points of a single pass. points is a flat
// x, y array.
func (l *Line) UpdatePositions(points []float64) error {
	if points == nil {
		points = []float64{}
	}
	return l.Update(&Options{Positions: points})
}

// UpdateBatch applies updates by index. Passes at indices past the end of
// updates are destroyed, as are passes marked with Remove; the remaining
// passes are then compacted in order.
//
// A configuration error leaves its pass unchanged and does not stop the
// other updates. All errors are joined.
func (l *Line) UpdateBatch(updates []PassUpdate) error {
	if l.destroyed {
		return ErrDestroyed
	}
	if len(l.passes) < len(updates) {
		l.passes = append(l.passes, make([]*pass, len(updates)-len(l.passes))...)
	}

	caps := l.dev.Capabilities()
	var errs []error
	for i, u := range updates {
		switch {
		case u.remove:
			l.destroyPass(i)
		case u.opts != nil:
			if err := l.updatePass(i, u.opts, caps); err != nil {
				errs = append(errs, fmt.Errorf("pass %d: %w", i, err))
			}
		}
	}

	for i := len(updates); i < len(l.passes); i++ {
		l.destroyPass(i)
	}
	l.passes = l.passes[:len(updates)]

	kept := l.passes[:0]
	for _, p := range l.passes {
		if p != nil {
			kept = append(kept, p)
		}
	}
	clear(l.passes[len(kept):])
	l.passes = kept

	return errors.Join(errs...)
}

func (l *Line) updatePass(i int, o *Options, caps gpucore.Capabilities) error {
	if err := o.validate(); err != nil {
		return err
	}

	p := l.passes[i]
	created := p == nil
	if created {
		var err error
		if p, err = newPass(l.dev, i, l.defaults); err != nil {
			return err
		}
		merged := l.defaults.merge(o)
		o = &merged
	}

	st, err := p.stage(o, i, caps, l.logger)
	if err != nil {
		if created {
			p.destroy(l.dev)
		}
		return err
	}
	l.passes[i] = p

	err = p.commit(l.dev, st)
	l.logger.Debug("line2d: pass updated",
		"pass", p.state.ID, "points", p.state.Points, "count", p.state.Count,
		"triangles", len(p.state.Triangles), "created", created)
	return err
}

func (l *Line) destroyPass(i int) {
	if i >= len(l.passes) || l.passes[i] == nil {
		return
	}
	l.passes[i].destroy(l.dev)
	l.passes[i] = nil
}

// Draw draws the passes at the given indices, or every pass when none are
// given. Unknown indices are skipped. Drawing continues past device errors;
// all of them are joined.
func (l *Line) Draw(indices ...int) error {
	if l.destroyed {
		return ErrDestroyed
	}
	progs, err := l.registry.Programs(l.dev)
	if err != nil {
		return fmt.Errorf("line2d: %w", err)
	}

	var errs []error
	draw := func(p *pass) {
		if err := l.drawPass(progs, p); err != nil {
			errs = append(errs, fmt.Errorf("pass %d: %w", p.state.ID, err))
		}
	}
	if len(indices) == 0 {
		for _, p := range l.passes {
			draw(p)
		}
		return errors.Join(errs...)
	}
	for _, i := range indices {
		if i < 0 || i >= len(l.passes) {
			l.logger.Debug("line2d: draw skips unknown pass", "index", i, "passes", len(l.passes))
			continue
		}
		draw(l.passes[i])
	}
	return errors.Join(errs...)
}

// Render applies updates, if any, and draws every pass.
func (l *Line) Render(updates ...PassUpdate) error {
	if len(updates) > 0 {
		if err := l.UpdateBatch(updates); err != nil {
			return err
		}
	}
	return l.Draw()
}

// Destroy releases every device resource of the line. It is safe to call
// more than once.
func (l *Line) Destroy() {
	if l.destroyed {
		return
	}
	l.destroyed = true
	for i := range l.passes {
		l.destroyPass(i)
	}
	l.passes = nil
	if l.ownRegistry {
		l.registry.Close()
	}
}

// Pass returns a copy of the state of the pass at index i.
func (l *Line) Pass(i int) (*PassState, bool) {
	if i < 0 || i >= len(l.passes) {
		return nil, false
	}
	return l.passes[i].state.clone(), true
}

// Len returns the number of passes.
func (l *Line) Len() int {
	return len(l.passes)
}
