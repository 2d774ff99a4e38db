package letters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/offres-filter/internal/offers"
)

// NewLimiter allows perMinute model calls per minute. A non-positive value disables throttling.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Summary is the outcome of a letter generation run.
type Summary struct {
	Total     int
	Generated int
	Failed    int
	Files     []string
	Elapsed   time.Duration
}

// Writer generates and saves one letter per offer.
type Writer struct {
	Generator   Generator
	Profile     *Profile
	Dir         string
	ExcludeFile string
	Limiter     *rate.Limiter
	Logger      *zap.Logger
}

// Write generates letters for items. A failing offer is logged and counted; the
// remaining offers are still processed. Offers with a saved letter are appended
// to the exclude file when one is configured.
func (w *Writer) Write(ctx context.Context, items []*offers.Offer) (*Summary, error) {
	if w.Generator == nil {
		return nil, fmt.Errorf("letter generator is required")
	}
	if w.Profile == nil {
		return nil, ErrProfileNotFound
	}

	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := w.Limiter
	if limiter == nil {
		limiter = NewLimiter(0)
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating letters directory: %w", err)
	}

	started := time.Now()
	summary := &Summary{Total: len(items)}
	var done []*offers.Offer

	for i, offer := range items {
		if err := limiter.Wait(ctx); err != nil {
			summary.Elapsed = time.Since(started)
			return summary, w.exclude(done, logger, err)
		}

		letter, err := w.Generator.Generate(ctx, BuildPrompt(offer, w.Profile))
		if err != nil {
			summary.Failed++
			logger.Warn("letter generation failed",
				zap.String("company", offer.Company),
				zap.String("title", offer.Title),
				zap.Error(err),
			)
			continue
		}

		path := filepath.Join(w.Dir, FileName(offer.Company, offer.Title, i))
		if err := os.WriteFile(path, []byte(letter), 0o644); err != nil {
			summary.Failed++
			logger.Error("saving letter", zap.String("path", path), zap.Error(err))
			continue
		}

		summary.Generated++
		summary.Files = append(summary.Files, path)
		done = append(done, offer)

		logger.Info("letter generated",
			zap.String("company", offer.Company),
			zap.String("title", offer.Title),
			zap.String("path", path),
			zap.Int("progress", i+1),
			zap.Int("total", len(items)),
		)
	}

	summary.Elapsed = time.Since(started)
	return summary, w.exclude(done, logger, nil)
}

// exclude records done in the exclude file and returns cause unless recording fails.
func (w *Writer) exclude(done []*offers.Offer, logger *zap.Logger, cause error) error {
	if w.ExcludeFile == "" || len(done) == 0 {
		return cause
	}

	excluded, err := offers.GetExcludedOffersFromFile(w.ExcludeFile)
	if err != nil {
		return fmt.Errorf("reading exclude file: %w", err)
	}

	excluded.Append(offers.ToExcluded(done, offers.ExcludeActorLetters))
	if err := excluded.ToFile(w.ExcludeFile); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}

	logger.Info("appended to exclude file",
		zap.String("filename", w.ExcludeFile),
		zap.Int("count", len(done)),
	)
	return cause
}
