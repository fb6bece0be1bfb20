package scraper

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// Progress receives category progress. It never affects the data written.
type Progress interface {
	Start(total int)
	Advance(category string)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(int)      {}
func (noopProgress) Advance(string) {}
func (noopProgress) Finish()        {}

// BarProgress renders a single progress bar for the category loop.
type BarProgress struct {
	out     io.Writer
	writer  progress.Writer
	tracker *progress.Tracker
}

// NewBarProgress renders to out (usually stderr).
func NewBarProgress(out io.Writer) *BarProgress {
	return &BarProgress{out: out}
}

func (b *BarProgress) Start(total int) {
	pw := progress.NewWriter()
	pw.SetOutputWriter(b.out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(32)
	pw.SetUpdateFrequency(250 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true

	b.tracker = &progress.Tracker{
		Message: "categories",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(b.tracker)
	b.writer = pw
	go pw.Render()
}

func (b *BarProgress) Advance(category string) {
	if b.tracker == nil {
		return
	}
	b.tracker.UpdateMessage(category)
	b.tracker.Increment(1)
}

func (b *BarProgress) Finish() {
	if b.tracker == nil {
		return
	}
	b.tracker.MarkAsDone()
	b.tracker.UpdateMessage("categories")
	b.writer.Stop()
	for b.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
