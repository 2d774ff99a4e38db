package partition

import (
	"context"
	"fmt"

	"github.com/spigell/offres-filter/internal/offers"
)

// WriteError describes a subset that could not be persisted.
type WriteError struct {
	Subset string
	Count  int
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write subset %s: %v", e.Subset, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Written describes a persisted subset.
type Written struct {
	Subset   string
	Count    int
	Location string
}

// PersistReport is the outcome of writing a dataset.
type PersistReport struct {
	Written  []Written
	Failures []*WriteError
	// Skipped lists subsets not attempted because the run was interrupted.
	Skipped []string
}

// Degraded reports whether at least one subset was not written.
func (r *PersistReport) Degraded() bool {
	return len(r.Failures) > 0 || len(r.Skipped) > 0
}

// Observer is notified after each subset attempt.
type Observer interface {
	SubsetWritten(w Written)
	SubsetFailed(err *WriteError)
}

// Persist writes every non-empty subset to sink in persistence order.
// A failing subset does not stop the remaining ones. Interruption through ctx
// stops before the next subset, so already written files stay complete.
func Persist(ctx context.Context, d *Dataset, sink offers.Sink, observer Observer) *PersistReport {
	report := &PersistReport{}

	names := d.NonEmpty()
	for i, name := range names {
		if ctx.Err() != nil {
			report.Skipped = append(report.Skipped, names[i:]...)
			break
		}

		rows := d.Subset(name)
		location, err := sink.Write(name, rows)
		if err != nil {
			werr := &WriteError{Subset: name, Count: len(rows), Err: err}
			report.Failures = append(report.Failures, werr)
			if observer != nil {
				observer.SubsetFailed(werr)
			}
			continue
		}

		w := Written{Subset: name, Count: len(rows), Location: location}
		report.Written = append(report.Written, w)
		if observer != nil {
			observer.SubsetWritten(w)
		}
	}

	return report
}
