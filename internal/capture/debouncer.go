package capture

import (
	"context"
	"strings"
	"sync"
	"time"
)

const DefaultQuietPeriod = 3 * time.Second

// ExtractFunc receives a chunk of transcript to extract items from.
type ExtractFunc func(ctx context.Context, text string)

// Debouncer buffers finalized segments and hands the pending delta to fn once
// no segment arrived for the quiet period. Timer-triggered calls never
// overlap.
type Debouncer struct {
	ctx   context.Context
	quiet time.Duration
	fn    ExtractFunc

	mu      sync.Mutex
	pending []string
	timer   *time.Timer
	gen     uint64

	runMu sync.Mutex
}

// NewDebouncer returns a debouncer whose timer-triggered calls run with ctx.
func NewDebouncer(ctx context.Context, quiet time.Duration, fn ExtractFunc) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{ctx: ctx, quiet: quiet, fn: fn}
}

// Record appends segment to the pending delta and re-arms the timer.
func (d *Debouncer) Record(segment string) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, segment)
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// Flush runs fn synchronously with the pending delta, if any, after any
// timer-triggered call in progress has finished.
func (d *Debouncer) Flush(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if delta := d.take(0); delta != "" {
		d.fn(ctx, delta)
	}
}

// Cancel stops the timer and drops the pending delta.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.pending = nil
}

func (d *Debouncer) fire(gen uint64) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if delta := d.take(gen); delta != "" {
		d.fn(d.ctx, delta)
	}
}

// take consumes the pending delta. A non-zero gen must match the latest
// Record, so a superseded timer takes nothing.
func (d *Debouncer) take(gen uint64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != 0 && gen != d.gen {
		return ""
	}
	d.stopLocked()
	delta := strings.Join(d.pending, " ")
	d.pending = nil
	return delta
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
