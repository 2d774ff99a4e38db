package letters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/offres-filter/internal/utils"
)

const (
	defaultModel        = "gemini-2.5-flash"
	defaultMaxRetries   = 3
	defaultRetryDelay   = 2 * time.Second
	defaultMaxLogLength = 200

	// MinLetterLength is the shortest answer accepted as a letter, in runes.
	MinLetterLength = 180
)

// ErrShortLetter is returned when the model answers with less than MinLetterLength runes.
var ErrShortLetter = errors.New("generated letter is too short")

// Generator turns a prompt into a letter.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates letters with the Gemini API.
type Gemini struct {
	models     modelsAPI
	model      string
	maxRetries int
	retryDelay time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

// NewGemini creates a generator for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGemini(client.Models, model, maxRetries, logger), nil
}

func newGemini(models modelsAPI, model string, maxRetries int, logger *zap.Logger) *Gemini {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gemini{
		models:     models,
		model:      model,
		maxRetries: maxRetries,
		retryDelay: defaultRetryDelay,
		maxLogLen:  defaultMaxLogLength,
		logger:     logger,
	}
}

func (g *Gemini) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate sends the prompt and returns the letter. Temporary API failures and
// short answers are retried with a linear backoff.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		letter, err := g.generateOnce(ctx, prompt)
		if err == nil {
			g.logger.Debug("gemini generate content response",
				zap.Int("attempt", attempt),
				zap.Int("response_length", utf8.RuneCountInString(letter)),
				zap.String("response_preview", utils.TruncateForLog(letter, g.maxLogLen)),
			)
			return letter, nil
		}

		lastErr = err
		if !retryable(err) || attempt == g.maxRetries {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", g.maxRetries),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, time.Duration(attempt)*g.retryDelay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("gemini %s: %w", g.model, lastErr)
}

func (g *Gemini) generateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if utf8.RuneCountInString(output) < MinLetterLength {
		return "", fmt.Errorf("%w: %d runes", ErrShortLetter, utf8.RuneCountInString(output))
	}

	return output, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	return true
}
