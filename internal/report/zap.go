package report

import (
	"math"

	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/logger"
	"github.com/spigell/offres-filter/internal/stats"
)

// ZapReporter writes one structured entry per event.
type ZapReporter struct {
	logger *zap.Logger
}

// NewZap returns a reporter logging to l. A nil logger discards events.
func NewZap(l *zap.Logger) *ZapReporter {
	return &ZapReporter{logger: logger.WithFields(l)}
}

func (z *ZapReporter) Report(e Event) {
	switch ev := e.(type) {
	case LoadCompleted:
		z.logger.Info("offers loaded",
			zap.String("source", ev.Source),
			zap.Int("count", ev.Total),
		)
	case ClassificationCompleted:
		z.logger.Info("classification complete",
			zap.Int("count", ev.Total),
			zap.Int("flagged", ev.Flagged),
		)
	case SubsetWritten:
		z.logger.Info("subset written",
			logger.CategoryField(ev.Name),
			zap.Int("count", ev.Count),
			zap.String("location", ev.Location),
		)
	case SubsetFailed:
		z.logger.Error("subset not written",
			logger.CategoryField(ev.Name),
			zap.Int("count", ev.Count),
			zap.Error(ev.Err),
		)
	case RunSummarized:
		z.summary(ev.Stats)
	default:
		z.logger.Warn("unknown report event", zap.Any("event", e))
	}
}

func (z *ZapReporter) summary(s stats.RunStatistics) {
	l := logger.WithFields(z.logger, logger.RunFields(s.RunID)...)

	l.Info("run summary",
		zap.Int("total", s.Total),
		zap.Int("training_org", s.TrainingOrg.Count),
		zap.Float64("training_org_percent", round(s.TrainingOrg.Percent)),
		zap.Int("real", s.Real.Count),
		zap.Float64("real_percent", round(s.Real.Percent)),
	)

	for _, c := range s.Distribution() {
		l.Info("contract distribution",
			logger.CategoryField(string(c.Type)),
			zap.Int("count", c.Count),
			zap.Float64("percent", round(c.Percent)),
		)
	}

	for _, k := range s.TopKeywords {
		l.Info("training organization keyword",
			zap.String("keyword", k.Keyword),
			zap.Int("count", k.Count),
			zap.Float64("percent", round(k.Percent)),
		)
	}

	fields := []zap.Field{
		zap.Int("alternance", s.Alternance.Count),
		zap.Float64("alternance_percent_of_real", round(s.Alternance.Percent)),
		zap.Float64("quality_score", round(s.QualityScore)),
	}
	if s.Verdict != stats.VerdictNone {
		fields = append(fields, zap.String("verdict", string(s.Verdict)))
	}
	if s.Writes != nil {
		fields = append(fields,
			zap.Int("subsets_written", len(s.Writes.Written)),
			zap.Int("subsets_failed", len(s.Writes.Failures)),
			zap.Strings("subsets_skipped", s.Writes.Skipped),
		)
	}

	if s.Degraded() {
		l.Warn("run completed with write failures", fields...)
		return
	}
	l.Info("run completed", fields...)
}

// round keeps one decimal, the precision of the summary display.
func round(v float64) float64 {
	return math.Round(v*10) / 10
}
