package letters

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/offres-filter/internal/offers"
)

var longLetter = "Madame, Monsieur,\n" + strings.Repeat("Je suis motivé par cette alternance. ", 8) + "\nCordialement,"

type fakeResponse struct {
	text string
	err  error
}

type fakeModels struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     int
	models    []string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.models = append(f.models, model)
	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	if res.err != nil {
		return nil, res.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: res.text}}},
		}},
	}, nil
}

func testGemini(models *fakeModels, retries int) *Gemini {
	g := newGemini(models, "gemini-test", retries, nil)
	g.retryDelay = 0
	return g
}

func TestGeminiRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		{text: "trop court"},
		{text: longLetter},
	}}

	letter, err := testGemini(models, 3).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if letter != strings.TrimSpace(longLetter) {
		t.Fatalf("unexpected letter: %q", letter)
	}
	if models.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", models.calls)
	}
	if models.models[0] != "gemini-test" {
		t.Fatalf("unexpected model: %q", models.models[0])
	}
}

func TestGeminiStopsAfterRetriesExhausted(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{{text: "court"}, {text: "court"}}}

	_, err := testGemini(models, 2).Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrShortLetter) {
		t.Fatalf("expected ErrShortLetter, got %v", err)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestGeminiDoesNotRetryClientError(t *testing.T) {
	models := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
	}}

	if _, err := testGemini(models, 3).Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestGeminiDefaults(t *testing.T) {
	g := newGemini(&fakeModels{}, "  ", 0, nil)
	if g.Model() != defaultModel {
		t.Fatalf("expected default model %q, got %q", defaultModel, g.Model())
	}
	if g.maxRetries != defaultMaxRetries {
		t.Fatalf("expected %d retries, got %d", defaultMaxRetries, g.maxRetries)
	}
	if testGemini(&fakeModels{}, 1).Model() != "gemini-test" {
		t.Fatal("expected configured model to be kept")
	}
}

func TestGeminiRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	if _, err := testGemini(models, 1).Generate(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if models.calls != 0 {
		t.Fatalf("expected no calls, got %d", models.calls)
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "spaces become underscores", input: "Acme Corp", limit: 50, expect: "Acme_Corp"},
		{name: "drops punctuation", input: "Dev (H/F) : Go!", limit: 50, expect: "Dev_HF__Go"},
		{name: "keeps accents", input: "Société Générale", limit: 50, expect: "Société_Générale"},
		{name: "cuts to limit", input: "abcdefghij", limit: 4, expect: "abcd"},
		{name: "trims", input: "  --x--  ", limit: 50, expect: "--x--"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeFilename(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("Acme Corp", "Alternant Go", 3); got != "lettre_Acme_Corp_Alternant_Go.txt" {
		t.Fatalf("unexpected file name: %q", got)
	}
	if got := FileName("", "???", 7); got != "lettre_entreprise_7_poste_7.txt" {
		t.Fatalf("unexpected fallback file name: %q", got)
	}
}

func testProfile() *Profile {
	return &Profile{
		Name:      "Camille Martin",
		Education: "Master IA",
		School:    "Université de Lyon",
		City:      "Lyon",
		Duration:  "2 ans",
		Projects: []Project{
			{Name: "Portfolio", Description: "Site vitrine statique"},
			{Name: "Dashboard", Description: "Tableau de bord React", Technologies: "react, node"},
			{Name: "Pipeline", Description: "ETL data en Python", Technologies: "python, docker"},
		},
	}
}

func TestSelectProjects(t *testing.T) {
	p := testProfile()

	got := p.SelectProjects("Stack Python et Docker, un peu de data", MaxProjects)
	if len(got) != 2 || got[0].Name != "Pipeline" || got[1].Name != "Portfolio" {
		t.Fatalf("unexpected selection: %+v", got)
	}

	fallback := p.SelectProjects("Comptabilité", MaxProjects)
	if len(fallback) != 2 || fallback[0].Name != "Portfolio" || fallback[1].Name != "Dashboard" {
		t.Fatalf("expected profile order on ties, got %+v", fallback)
	}

	if none := (&Profile{}).SelectProjects("react", MaxProjects); len(none) != 0 {
		t.Fatalf("expected no projects, got %+v", none)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadProfile(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	path := filepath.Join(dir, "candidate_profile.json")
	content := `{"nom": "", "formation": "BTS SIO", "projets": [{"nom": "API", "technologies": "go"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing profile: %v", err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("loading profile: %v", err)
	}
	if p.Name != "Candidat" || p.Duration != "2 ans" || p.Education != "BTS SIO" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.Projects) != 1 || p.Projects[0].Technologies != "go" {
		t.Fatalf("unexpected projects: %+v", p.Projects)
	}
}

func TestBuildPrompt(t *testing.T) {
	offer := &offers.Offer{
		Company:     "Acme Corp",
		Title:       "Alternant data",
		Description: strings.Repeat("python ", 200),
	}

	prompt := BuildPrompt(offer, testProfile())

	for _, want := range []string{"Entreprise : Acme Corp", "Poste : Alternant data", "Localisation : Non précisé", "Projet 1 : Pipeline", "Master IA à Université de Lyon"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected %q in prompt:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("unreplaced placeholder in prompt:\n%s", prompt)
	}
	if strings.Count(prompt, "python") > 200 {
		t.Fatalf("expected description to be truncated")
	}
}

type stubGenerator struct {
	fail map[string]bool
}

func (s stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	for company := range s.fail {
		if strings.Contains(prompt, "Entreprise : "+company+"\n") {
			return "", errors.New("model unavailable")
		}
	}
	return longLetter, nil
}

func TestWriterContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	excludeFile := filepath.Join(dir, "exclude.json")

	w := &Writer{
		Generator:   stubGenerator{fail: map[string]bool{"Globex": true}},
		Profile:     testProfile(),
		Dir:         filepath.Join(dir, "letters"),
		ExcludeFile: excludeFile,
		Limiter:     NewLimiter(0),
	}

	summary, err := w.Write(context.Background(), []*offers.Offer{
		{Company: "Acme Corp", Title: "Alternant dev", URL: "https://example.com/1"},
		{Company: "Globex", Title: "Alternant data", URL: "https://example.com/2"},
		{Company: "Initech", Title: "Alternant ops", URL: "https://example.com/3"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if summary.Total != 3 || summary.Generated != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	data, err := os.ReadFile(filepath.Join(dir, "letters", "lettre_Acme_Corp_Alternant_dev.txt"))
	if err != nil {
		t.Fatalf("reading letter: %v", err)
	}
	if string(data) != longLetter {
		t.Fatalf("unexpected letter content: %q", data)
	}

	excluded, err := offers.GetExcludedOffersFromFile(excludeFile)
	if err != nil {
		t.Fatalf("reading exclude file: %v", err)
	}
	keys := excluded.Keys()
	if len(keys) != 2 || keys[0] != "https://example.com/1" || keys[1] != "https://example.com/3" {
		t.Fatalf("unexpected excluded keys: %v", keys)
	}
}

func TestWriterStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &Writer{
		Generator: stubGenerator{},
		Profile:   testProfile(),
		Dir:       t.TempDir(),
		Limiter:   NewLimiter(1),
	}

	summary, err := w.Write(ctx, []*offers.Offer{{Company: "Acme Corp", Title: "Alternant"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Generated != 0 {
		t.Fatalf("expected no letters, got %+v", summary)
	}
}

func TestWriterRequiresProfile(t *testing.T) {
	w := &Writer{Generator: stubGenerator{}, Dir: t.TempDir()}
	if _, err := w.Write(context.Background(), nil); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
