package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/offers"
	"github.com/spigell/offres-filter/internal/report"
	"github.com/spigell/offres-filter/internal/stats"
)

const scenarioCSV = "title,company,location,contract,description,url\n" +
	"Formation dev,Ynov Campus,Lyon,,stage de 6 mois,https://example.com/1\n" +
	"Dev Go,Acme Corp,Paris,CDI temps plein,,https://example.com/2\n" +
	"Renfort,Acme Corp,Paris,,mission cdd de 6 mois,https://example.com/3\n" +
	"Alternant dev,Acme Corp,Nantes,alternance 2 ans,,https://example.com/4\n"

type memorySource struct {
	items *offers.Offers
	err   error
}

func (s memorySource) Name() string { return "memory" }

func (s memorySource) Load(context.Context) (*offers.Offers, error) {
	return s.items, s.err
}

type failingSink struct {
	fail string
}

func (s failingSink) Write(name string, _ []*offers.Annotated) (string, error) {
	if name == s.fail {
		return "", errors.New("disk full")
	}
	return name, nil
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offres.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func csvSink(dir string) SinkFactory {
	return func(columns []string) (offers.Sink, error) {
		return offers.NewSink(offers.FormatCSV, dir, columns)
	}
}

func TestRunScenario(t *testing.T) {
	out := t.TempDir()
	rec := &report.Recorder{}

	result, err := Run(context.Background(), Config{
		Source:   CSVFile(writeInput(t, scenarioCSV)),
		Sink:     csvSink(out),
		Reporter: rec,
		RunID:    "run-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.False(t, result.Degraded())
	assert.Equal(t, 4, result.Stats.Total)
	assert.Equal(t, 25.0, result.Stats.QualityScore)
	assert.Equal(t, stats.VerdictGood, result.Stats.Verdict)

	for _, name := range []string{"offres_ecoles", "offres_alternance", "offres_cdi", "offres_cdd"} {
		assert.FileExists(t, filepath.Join(out, name+".csv"))
	}
	assert.NoFileExists(t, filepath.Join(out, "offres_stage.csv"))
	assert.NoFileExists(t, filepath.Join(out, "offres_non_precise.csv"))

	events := rec.Events()
	require.Len(t, events, 7)
	assert.Equal(t, report.ClassificationCompleted{Total: 4, Flagged: 1}, events[1])
	assert.Equal(t, "offres_ecoles", events[2].(report.SubsetWritten).Name)
	_, ok := events[6].(report.RunSummarized)
	assert.True(t, ok)
}

func TestRunReportsToLoggerAndReporter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := &report.Recorder{}

	_, err := Run(context.Background(), Config{
		Source:   CSVFile(writeInput(t, scenarioCSV)),
		Sink:     csvSink(t.TempDir()),
		Reporter: rec,
		Logger:   zap.New(core),
		RunID:    "run-2",
	})
	require.NoError(t, err)

	assert.Len(t, rec.Events(), 7)
	assert.Equal(t, 1, logs.FilterMessage("offers loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("run completed").Len())
}

func TestRunSourceUnavailable(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	rec := &report.Recorder{}

	_, err := Run(context.Background(), Config{
		Source:   CSVFile(filepath.Join(t.TempDir(), "missing.csv")),
		Sink:     csvSink(out),
		Reporter: rec,
	})
	require.ErrorIs(t, err, offers.ErrSourceUnavailable)

	assert.Empty(t, rec.Events())
	assert.NoDirExists(t, out)
}

func TestRunEmptyCollection(t *testing.T) {
	out := t.TempDir()

	result, err := Run(context.Background(), Config{
		Source:   CSVFile(writeInput(t, "title,company,contract,description\n")),
		Sink:     csvSink(out),
		Reporter: &report.Recorder{},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 0, result.Stats.Total)
	assert.Equal(t, 0.0, result.Stats.QualityScore)
	assert.Equal(t, stats.VerdictNone, result.Stats.Verdict)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunDegradedOnWriteFailure(t *testing.T) {
	items, err := offers.DecodeCSVString(scenarioCSV)
	require.NoError(t, err)

	rec := &report.Recorder{}
	result, err := Run(context.Background(), Config{
		Source: memorySource{items: items},
		Sink: func([]string) (offers.Sink, error) {
			return failingSink{fail: "offres_alternance"}, nil
		},
		Workers:  4,
		Reporter: rec,
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded())
	require.Len(t, result.Stats.Writes.Failures, 1)
	assert.Equal(t, "offres_alternance", result.Stats.Writes.Failures[0].Subset)
	assert.Len(t, result.Stats.Writes.Written, 3)
	assert.Equal(t, 1, result.Stats.Contract(lexicon.Alternance).Count, "statistics still count failed subsets")

	var failed int
	for _, e := range rec.Events() {
		if _, ok := e.(report.SubsetFailed); ok {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRunRequiresCollaborators(t *testing.T) {
	_, err := Run(context.Background(), Config{Sink: csvSink(t.TempDir())})
	assert.Error(t, err)

	_, err = Run(context.Background(), Config{Source: memorySource{}})
	assert.Error(t, err)
}

func TestRunSinkFactoryError(t *testing.T) {
	items, err := offers.DecodeCSVString(scenarioCSV)
	require.NoError(t, err)

	_, err = Run(context.Background(), Config{
		Source: memorySource{items: items},
		Sink: func(columns []string) (offers.Sink, error) {
			return offers.NewSink("parquet", t.TempDir(), columns)
		},
		Reporter: &report.Recorder{},
	})
	assert.ErrorIs(t, err, offers.ErrUnknownFormat)
}
