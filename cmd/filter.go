package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/classifier"
	"github.com/spigell/offres-filter/internal/history"
	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/metrics"
	"github.com/spigell/offres-filter/internal/offers"
	"github.com/spigell/offres-filter/internal/pipeline"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Classify offers and write one file per category",
	Run: func(cmd *cobra.Command, _ []string) {
		runFilter(cmd)
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringP("input", "i", "", "CSV file with the scraped offers")
	filterCmd.Flags().StringP("output-dir", "o", "", "directory for the per-category files")
	filterCmd.Flags().String("format", "", "output format: csv or xlsx")
	filterCmd.Flags().Int("workers", 0, "number of parallel classification workers")

	viper.BindPFlag("input", filterCmd.Flags().Lookup("input"))
	viper.BindPFlag("output-dir", filterCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("output-format", filterCmd.Flags().Lookup("format"))
	viper.BindPFlag("workers", filterCmd.Flags().Lookup("workers"))
}

func runFilter(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(true)
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	logger.Info("starting the offres-filter", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	lex, err := loadLexicon(config.LexiconFile)
	if err != nil {
		logger.Fatal("loading lexicon", zap.Error(err))
	}
	training, contracts := lex.Size()
	logger.Debug("lexicon loaded",
		zap.Int("training_org_phrases", training),
		zap.Int("contract_phrases", contracts),
		zap.Strings("priority", contractNames()),
	)

	format := strings.ToLower(strings.TrimSpace(config.OutputFormat))
	result, err := pipeline.Run(ctx, pipeline.Config{
		Source: pipeline.CSVFile(config.Input),
		Sink: func(columns []string) (offers.Sink, error) {
			return offers.NewSink(format, config.OutputDir, columns)
		},
		Classifier: classifier.New(lex),
		Workers:    config.Workers,
		Logger:     logger,
		RunID:      runID,
	})
	if err != nil {
		if errors.Is(err, offers.ErrSourceUnavailable) {
			logger.Fatal("loading offers",
				zap.Error(err),
				zap.String("hint", "run the scraper first or set CSV_OUTPUT / the 'input' key in the configuration file"),
			)
		}
		logger.Fatal("filtering failed", zap.Error(err))
	}

	recordMetrics(logger, config.MetricsFile, result)
	recordHistory(ctx, logger, config.History.Path, result)

	if result.Degraded() {
		logger.Warn("some subsets were not written", zap.String("output_dir", config.OutputDir))
		return
	}

	logger.Info("filtering completed",
		zap.String("output_dir", config.OutputDir),
		zap.Duration("duration", result.Duration),
	)
}

func contractNames() []string {
	types := lexicon.Categories()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}

// recordMetrics writes the Prometheus textfile; failures are logged only.
func recordMetrics(logger *zap.Logger, path string, result *pipeline.Result) {
	if strings.TrimSpace(path) == "" {
		return
	}

	c := metrics.New()
	c.Observe(result.Stats, result.Duration)
	if err := c.WriteTextfile(path); err != nil {
		logger.Warn("writing metrics", zap.Error(err))
		return
	}
	logger.Debug("metrics written", zap.String("path", path))
}

// recordHistory stores the run in the history database; failures are logged only.
func recordHistory(ctx context.Context, logger *zap.Logger, path string, result *pipeline.Result) {
	if strings.TrimSpace(path) == "" {
		return
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		logger.Warn("opening run history", zap.String("path", path), zap.Error(err))
		return
	}
	defer store.Close()

	if err := store.Record(ctx, history.FromStats(result.StartedAt, result.Source, result.Stats)); err != nil {
		logger.Warn("recording run history", zap.Error(err))
		return
	}
	logger.Debug("run recorded", zap.String("path", path))
}
