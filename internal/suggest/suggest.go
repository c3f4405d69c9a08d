// Package suggest asks a Gemini model which of a user's categories fits a
// transaction note.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("category suggestions are disabled")

// Suggestion is the category picked by the model.
type Suggestion struct {
	CategoryID string  `json:"category_id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Generator returns the raw text answer of a model to prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier picks categories through a Generator.
type Classifier struct {
	gen Generator
	log zerolog.Logger
}

// NewClassifier wraps gen.
func NewClassifier(gen Generator, log zerolog.Logger) *Classifier {
	return &Classifier{gen: gen, log: log}
}

// NewGemini creates a classifier backed by the Gemini API. It returns
// ErrDisabled when apiKey is empty.
func NewGemini(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Classifier, error) {
	if apiKey == "" {
		return nil, ErrDisabled
	}
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return NewClassifier(&gemini{client: client, model: model}, log), nil
}

type gemini struct {
	client *genai.Client
	model  string
}

func (g *gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

type answer struct {
	CategoryID string  `json:"category_id"`
	Confidence float64 `json:"confidence"`
}

// Suggest returns the category among categories that best fits note.
func (c *Classifier) Suggest(ctx context.Context, note string, typ domain.TransactionType, categories []domain.Category) (Suggestion, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Suggestion{}, fmt.Errorf("Suggest: %w: note is required", domain.ErrInvalidInput)
	}

	candidates := make([]domain.Category, 0, len(categories))
	for _, cat := range categories {
		if cat.Type == typ {
			candidates = append(candidates, cat)
		}
	}
	if len(candidates) == 0 {
		return Suggestion{}, fmt.Errorf("Suggest: %w: no %s categories", domain.ErrNotFound, typ)
	}

	raw, err := c.gen.Generate(ctx, buildPrompt(note, typ, candidates))
	if err != nil {
		return Suggestion{}, fmt.Errorf("Suggest: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Suggestion{}, fmt.Errorf("Suggest: empty response from model")
	}

	var a answer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &a); err != nil {
		c.log.Debug().Str("raw_response", raw).Msg("Unparseable suggestion")
		return Suggestion{}, fmt.Errorf("Suggest: unmarshal JSON: %w", err)
	}

	for _, cat := range candidates {
		if cat.ID == a.CategoryID {
			return Suggestion{
				CategoryID: cat.ID,
				Category:   cat.Name,
				Confidence: math.Max(0, math.Min(1, a.Confidence)),
			}, nil
		}
	}
	return Suggestion{}, fmt.Errorf("Suggest: model returned unknown category %q", a.CategoryID)
}

func buildPrompt(note string, typ domain.TransactionType, categories []domain.Category) string {
	var b strings.Builder
	b.WriteString("You classify personal finance transactions into the user's own categories.\n\n")
	fmt.Fprintf(&b, "Transaction type: %s\n", typ)
	fmt.Fprintf(&b, "Transaction note: %q\n\n", note)

	b.WriteString("Use ONLY the following categories (id: name):\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "  - %s: %s\n", cat.ID, cat.Name)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. category_id must be EXACTLY one of the ids shown above.\n")
	b.WriteString("2. confidence is a number between 0 and 1.\n")
	b.WriteString("3. Notes may be in Spanish or English.\n\n")
	b.WriteString("Return ONLY a raw JSON object: {\"category_id\": \"...\", \"confidence\": 0.0}\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	return b.String()
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
