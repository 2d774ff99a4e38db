package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/filtering"
	"github.com/spigell/offres-filter/internal/letters"
	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/offers"
	"github.com/spigell/offres-filter/internal/partition"
	"github.com/spigell/offres-filter/internal/secrets"
)

const (
	PromptYes        = "Yes"
	PromptNo         = "No"
	PromptListOffers = "List target offers"
	PromptExcludeAll = "Append all offers to exclude file"
)

var errExit = errors.New("exit requested")

var lettersPrompt = promptui.Select{
	Label: "Generate letters?",
	Items: []string{PromptYes, PromptNo, PromptListOffers, PromptExcludeAll},
}

var lettersCmd = &cobra.Command{
	Use:   "letters [offers.csv]",
	Short: "Generate cover letters for the alternance offers",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLetters(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(lettersCmd)

	lettersCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before generating letters")
	lettersCmd.Flags().IntP("limit", "l", 0, "generate at most this many letters (0 is unlimited)")
	lettersCmd.Flags().StringP("exclude-file", "e", "", "file with offers to skip; generated offers are appended to it")

	viper.BindPFlag("letters.limit", lettersCmd.Flags().Lookup("limit"))
	viper.BindPFlag("letters.exclude-file", lettersCmd.Flags().Lookup("exclude-file"))
}

func runLetters(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(true)
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	cfg := config.Letters

	input := filepath.Join(config.OutputDir, partition.SubsetName(lexicon.Alternance)+".csv")
	if len(args) > 0 {
		input = args[0]
	}

	profile, err := letters.LoadProfile(cfg.Profile)
	if err != nil {
		logger.Fatal("loading candidate profile",
			zap.Error(err),
			zap.String("hint", "create the profile first or set letters.profile in the configuration file"),
		)
	}

	items, err := offers.ReadCSV(input)
	if err != nil {
		logger.Fatal("loading offers", zap.Error(err), zap.String("hint", "run the filter command first"))
	}

	logger.Info("starting letter generation",
		zap.String("source", input),
		zap.String("candidate", profile.Name),
		zap.Int("projects", len(profile.Projects)),
		zap.Int("offers", items.Len()),
	)

	if items.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no offers to process"))
		return
	}

	var companies []string
	if cfg.Exclude != nil {
		companies = cfg.Exclude.Companies
	}

	filterConfig := &filtering.Config{
		Companies:   companies,
		ExcludeFile: cfg.ExcludeFile,
		Limit:       cfg.Limit,
	}
	steps := filtering.ForConfig(filterConfig)
	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	targets, err := filtering.Run(ctx, filterConfig, filtering.Deps{Logger: logger}, steps, items)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if targets.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no offers left after filters"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		if err := confirm(logger, cfg, targets); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Fatal("loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'letters.gemini.api-key-file' key in the configuration file"),
		)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := letters.NewGemini(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		logger.Fatal("creating letter generator", zap.Error(err))
	}
	genLogger.Info("letter generator ready", zap.String("model", generator.Model()))

	writer := &letters.Writer{
		Generator:   generator,
		Profile:     profile,
		Dir:         cfg.OutputDir,
		ExcludeFile: cfg.ExcludeFile,
		Limiter:     letters.NewLimiter(cfg.RequestsPerMinute),
		Logger:      logger,
	}

	summary, err := writer.Write(ctx, targets.Items)
	if err != nil && summary == nil {
		logger.Fatal("generating letters", zap.Error(err))
	}

	fields := []zap.Field{
		zap.Int("total", summary.Total),
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
		zap.String("output_dir", cfg.OutputDir),
	}
	if err != nil {
		logger.Warn("letter generation interrupted", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("letter generation completed", fields...)
}

// confirm asks before spending model calls. errExit means the user declined.
func confirm(logger *zap.Logger, cfg *LettersConfig, targets *offers.Offers) error {
	for {
		_, action, err := lettersPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptYes:
			return nil
		case PromptNo:
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return errExit
		case PromptListOffers:
			for _, o := range targets.Items {
				logger.Info("target offer",
					zap.String("company", o.Company),
					zap.String("title", o.Title),
					zap.String("url", o.URL),
				)
			}
		case PromptExcludeAll:
			if cfg.ExcludeFile == "" {
				logger.Warn("exclude file is not configured")
				continue
			}
			excluded, err := offers.GetExcludedOffersFromFile(cfg.ExcludeFile)
			if err != nil {
				return err
			}
			excluded.Append(offers.ToExcluded(targets.Items, offers.ExcludeActorManual))
			if err := excluded.ToFile(cfg.ExcludeFile); err != nil {
				return err
			}
			logger.Info("appended to exclude file", zap.String("filename", cfg.ExcludeFile), zap.Int("count", targets.Len()))
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}
