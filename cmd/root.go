package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/logger"
)

const (
	app = "offres-filter"
)

type Config struct {
	Input        string         `mapstructure:"input"`
	OutputDir    string         `mapstructure:"output-dir"`
	OutputFormat string         `mapstructure:"output-format"`
	LogFile      string         `mapstructure:"log-file"`
	LexiconFile  string         `mapstructure:"lexicon-file"`
	Workers      int            `mapstructure:"workers"`
	MetricsFile  string         `mapstructure:"metrics-file"`
	History      *HistoryConfig `mapstructure:"history"`
	Letters      *LettersConfig `mapstructure:"letters"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type LettersConfig struct {
	OutputDir         string        `mapstructure:"output-dir"`
	Profile           string        `mapstructure:"profile"`
	ExcludeFile       string        `mapstructure:"exclude-file"`
	Limit             int           `mapstructure:"limit"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
	Exclude           *struct {
		Companies []string
	}
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "offres-filter classifies scraped job offers and writes cover letters for the relevant ones",
	}
)

// envBindings keeps the variable names used by the scraper and the .env file.
var envBindings = map[string]string{
	"input":                       "CSV_OUTPUT",
	"output-dir":                  "FILTERED_FOLDER",
	"letters.output-dir":          "LETTERS_FOLDER",
	"letters.gemini.api-key-file": "GEMINI_API_KEY_FILE",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("input", "data/input/offres.csv")
	viper.SetDefault("output-dir", "data/output/filtered")
	viper.SetDefault("output-format", "csv")
	viper.SetDefault("log-file", "data/filter.log")
	viper.SetDefault("workers", 1)
	viper.SetDefault("letters.output-dir", "data/output/letters")
	viper.SetDefault("letters.profile", "data/candidate_profile.json")
	viper.SetDefault("letters.exclude-file", "data/output/letters/exclude.json")
	viper.SetDefault("letters.requests-per-minute", 10)
	viper.SetDefault("letters.gemini.max-retries", 3)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is offres-filter.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Variables already set in the environment win over the .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, defaults cover every command. A broken file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Letters == nil {
		config.Letters = &LettersConfig{}
	}
	if config.Letters.Gemini == nil {
		config.Letters.Gemini = &GeminiConfig{}
	}
	if config.History == nil {
		config.History = &HistoryConfig{}
	}

	return config, nil
}

// newLogger builds the command logger. The run log file is added when logToFile is set.
func newLogger(logToFile bool) *zap.Logger {
	var files []string
	if logToFile {
		files = append(files, viper.GetString("log-file"))
	}

	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), files...)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func loadLexicon(path string) (*lexicon.Lexicon, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return lexicon.Default(), nil
	}

	lex, err := lexicon.LoadFromYAML(path)
	if err != nil {
		return nil, fmt.Errorf("loading lexicon %s: %w", path, err)
	}
	return lex, nil
}
