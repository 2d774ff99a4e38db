// Package report turns run events into structured log entries.
// Callers emit events; rendering is left to the Reporter.
package report

import (
	"sync"

	"github.com/spigell/offres-filter/internal/partition"
	"github.com/spigell/offres-filter/internal/stats"
)

// Event is a semantic step of a run.
type Event interface {
	event()
}

// LoadCompleted is emitted once the offer collection is read.
type LoadCompleted struct {
	Source string
	Total  int
}

// ClassificationCompleted is emitted once every offer is classified.
type ClassificationCompleted struct {
	Total   int
	Flagged int
}

// SubsetWritten is emitted after a subset is persisted.
type SubsetWritten struct {
	Name     string
	Count    int
	Location string
}

// SubsetFailed is emitted when a subset could not be persisted.
type SubsetFailed struct {
	Name  string
	Count int
	Err   error
}

// RunSummarized carries the final statistics of a run.
type RunSummarized struct {
	Stats stats.RunStatistics
}

func (LoadCompleted) event()           {}
func (ClassificationCompleted) event() {}
func (SubsetWritten) event()           {}
func (SubsetFailed) event()            {}
func (RunSummarized) event()           {}

// Reporter receives run events.
type Reporter interface {
	Report(e Event)
}

// Multi fans events out to several reporters.
type Multi []Reporter

func (m Multi) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Observer adapts a Reporter to the persist step.
func Observer(r Reporter) partition.Observer {
	return persistObserver{r: r}
}

type persistObserver struct {
	r Reporter
}

func (o persistObserver) SubsetWritten(w partition.Written) {
	o.r.Report(SubsetWritten{Name: w.Subset, Count: w.Count, Location: w.Location})
}

func (o persistObserver) SubsetFailed(err *partition.WriteError) {
	o.r.Report(SubsetFailed{Name: err.Subset, Count: err.Count, Err: err.Err})
}
