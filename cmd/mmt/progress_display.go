package main

import (
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"mmt/internal/encoder"
	"mmt/internal/media/resolution"
)

// progressDisplay renders one bar per tier while encodes run. It is nil
// when the output is not a terminal; the encoder's own sampled log lines
// cover that case.
type progressDisplay struct {
	mu       sync.Mutex
	writer   progress.Writer
	trackers map[resolution.Tier]*progress.Tracker
	stopped  bool
}

func newProgressDisplay(w io.Writer) *progressDisplay {
	if !shouldColorize(w) {
		return nil
	}
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(250 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = false
	go pw.Render()
	return &progressDisplay{
		writer:   pw,
		trackers: make(map[resolution.Tier]*progress.Tracker),
	}
}

// Update implements workflow.ProgressFunc.
func (d *progressDisplay) Update(tier resolution.Tier, p encoder.Progress) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	tracker, ok := d.trackers[tier]
	if !ok {
		tracker = &progress.Tracker{Message: tier.String(), Total: 100, Units: progress.UnitsDefault}
		d.writer.AppendTracker(tracker)
		d.trackers[tier] = tracker
	}
	tracker.SetValue(int64(p.Percent))
	if p.Percent >= 100 {
		tracker.MarkAsDone()
	}
}

// Stop finishes every bar and halts rendering. Safe to call twice.
func (d *progressDisplay) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for _, tracker := range d.trackers {
		if !tracker.IsDone() {
			tracker.MarkAsDone()
		}
	}
	d.writer.Stop()
}
