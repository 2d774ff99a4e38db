package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/history"
	"github.com/spigell/offres-filter/internal/lexicon"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the last filtering runs",
	Run: func(cmd *cobra.Command, _ []string) {
		runHistory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", history.DefaultLimit, "number of runs to show")
}

func runHistory(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger(false)
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path := strings.TrimSpace(config.History.Path)
	if path == "" {
		logger.Fatal("history database is not configured", zap.String("hint", "set history.path in the configuration file"))
	}

	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.Open(ctx, path)
	if err != nil {
		logger.Fatal("opening run history", zap.String("path", path), zap.Error(err))
	}
	defer store.Close()

	runs, err := store.List(ctx, limit)
	if err != nil {
		logger.Fatal("listing runs", zap.Error(err))
	}

	if len(runs) == 0 {
		logger.Info("no runs recorded yet", zap.String("path", path))
		return
	}

	for _, r := range runs {
		fields := []zap.Field{
			zap.String("run_id", r.ID),
			zap.String("started_at", r.StartedAt.Local().Format(time.RFC3339)),
			zap.String("source", r.Source),
			zap.Int("total", r.Total),
			zap.Int("training_org", r.Training),
			zap.Int("real", r.Real),
		}
		for _, t := range lexicon.Categories() {
			fields = append(fields, zap.Int(string(t), r.Contracts[t]))
		}
		fields = append(fields,
			zap.Float64("quality_score", r.QualityScore),
			zap.String("verdict", r.Verdict),
			zap.Bool("degraded", r.Degraded),
		)
		logger.Info("run", fields...)
	}
}
