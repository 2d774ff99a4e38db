// Package pipeline runs one filtering pass: load, classify, partition, persist, summarize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/classifier"
	"github.com/spigell/offres-filter/internal/logger"
	"github.com/spigell/offres-filter/internal/offers"
	"github.com/spigell/offres-filter/internal/partition"
	"github.com/spigell/offres-filter/internal/report"
	"github.com/spigell/offres-filter/internal/stats"
)

// Source provides the offer collection of a run.
type Source interface {
	Name() string
	Load(ctx context.Context) (*offers.Offers, error)
}

// CSVFile reads offers from a CSV file.
type CSVFile string

func (f CSVFile) Name() string {
	return string(f)
}

func (f CSVFile) Load(ctx context.Context) (*offers.Offers, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return offers.ReadCSV(string(f))
}

// SinkFactory builds the sink once the source columns are known.
type SinkFactory func(columns []string) (offers.Sink, error)

// Config wires the collaborators of a run.
type Config struct {
	Source     Source
	Sink       SinkFactory
	Classifier *classifier.Classifier
	Workers    int
	// Reporter receives the run events in addition to the logger.
	Reporter report.Reporter
	Logger     *zap.Logger
	// RunID is generated when empty.
	RunID string
}

// Result is the outcome of a completed run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Source    string
	Dataset   *partition.Dataset
	Stats     stats.RunStatistics
}

// Degraded reports whether some subsets were not written.
func (r *Result) Degraded() bool {
	return r.Stats.Degraded()
}

// Run executes one pass. A source that cannot be read is fatal and nothing is written.
// Subset write failures are not errors; they make the result degraded.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Source == nil {
		return nil, errors.New("pipeline source is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("pipeline sink is required")
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	var reporter report.Reporter = report.NewZap(cfg.Logger)
	if cfg.Reporter != nil {
		reporter = report.Multi{reporter, cfg.Reporter}
	}
	log := logger.WithRun(cfg.Logger, runID)

	result := &Result{RunID: runID, StartedAt: time.Now(), Source: cfg.Source.Name()}

	log.Debug("loading offers", zap.String("source", result.Source))
	collection, err := cfg.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading offers: %w", err)
	}
	reporter.Report(report.LoadCompleted{Source: result.Source, Total: collection.Len()})

	sink, err := cfg.Sink(collection.Columns)
	if err != nil {
		return nil, fmt.Errorf("building sink: %w", err)
	}

	d, err := partition.New(cfg.Classifier, cfg.Workers).Partition(ctx, collection.Items)
	if err != nil {
		return nil, err
	}
	result.Dataset = d
	reporter.Report(report.ClassificationCompleted{Total: len(d.All), Flagged: d.Count(partition.SchoolSubset)})

	if len(d.All) == 0 {
		log.Info("no offers to partition", zap.String("source", result.Source))
	}

	written := partition.Persist(ctx, d, sink, report.Observer(reporter))
	if len(written.Skipped) > 0 {
		log.Warn("run interrupted before every subset was written", zap.Strings("skipped", written.Skipped))
	}

	result.Stats = stats.Summarize(d.All, d).WithWrites(runID, written)
	result.Duration = time.Since(result.StartedAt)
	reporter.Report(report.RunSummarized{Stats: result.Stats})

	return result, nil
}
