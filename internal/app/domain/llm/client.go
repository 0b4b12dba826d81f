// Package llm wraps the Gemini client for the two jobs the dialog engine
// delegates to a model: backup intent resolution when the deterministic
// tiers give up, and optional stylization of the final reply before TTS.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// MaxFallbackConfidence caps what the model tier may claim; deterministic
// tiers always outrank it.
const MaxFallbackConfidence = 0.75

const defaultModel = "gemini-2.0-flash"

// Classification is the parsed result of a backup intent call.
type Classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Dish       string  `json:"dish"`
	City       string  `json:"city"`
}

type Client struct {
	ai     *genai.Client
	model  string
	logger *zap.Logger

	// resolutions remembers recent classifications so the same utterance
	// inside the TTL never pays for a second model call.
	resolutions *cache.Cache
}

func New(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "NewClient")
	defer span.End()

	if apiKey == "" {
		err := fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, err
	}

	span.SetStatus(codes.Ok, "AI client created successfully")
	return &Client{
		ai:          client,
		model:       model,
		logger:      logger,
		resolutions: cache.New(5*time.Minute, 10*time.Minute),
	}, nil
}

// ResolveIntent asks the model to classify one utterance. The answer is
// constrained to the allowed intent set; anything outside it comes back as
// "unknown" so a hallucinated label can never reach the capability gate.
func (c *Client) ResolveIntent(ctx context.Context, text string, allowed []string) (*Classification, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "ResolveIntent", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
	))
	defer span.End()

	key := resolutionKey(text, allowed)
	if cached, found := c.resolutions.Get(key); found {
		if cls, ok := cached.(*Classification); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true), attribute.String("intent", cls.Intent))
			span.SetStatus(codes.Ok, "Intent classified from cache")
			cp := *cls
			return &cp, nil
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  256,
		ResponseMIMEType: "application/json",
	}

	result, err := c.ai.Models.GenerateContent(ctx, c.model, genai.Text(classifyPrompt(text, allowed)), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}

	cls, err := parseClassification(result.Text(), allowed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unparseable classification")
		return nil, err
	}

	c.resolutions.Set(key, cls, cache.DefaultExpiration)

	span.SetAttributes(attribute.String("intent", cls.Intent))
	span.SetStatus(codes.Ok, "Intent classified")
	return cls, nil
}

func resolutionKey(text string, allowed []string) string {
	return strings.ToLower(strings.TrimSpace(text)) + "|" + strings.Join(allowed, ",")
}

// Stylize rewrites a deterministic reply into a slightly warmer phrasing.
// Numbers and item names must survive untouched; when the model loses any
// digit run the original reply wins.
func (c *Client) Stylize(ctx context.Context, reply string) (string, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "Stylize", trace.WithAttributes(
		attribute.Int("reply.length", len(reply)),
	))
	defer span.End()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: 512,
	}

	result, err := c.ai.Models.GenerateContent(ctx, c.model, genai.Text(stylizePrompt(reply)), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return reply, fmt.Errorf("stylization failed: %w", err)
	}

	styled := guardStyled(reply, result.Text())
	if styled == reply && result.Text() != reply {
		c.logger.Debug("stylized reply dropped a fact, keeping original",
			zap.Int("original_len", len(reply)),
			zap.Int("styled_len", len(result.Text())))
	}
	span.SetStatus(codes.Ok, "Reply styled")
	return styled, nil
}

// parseClassification tolerates the usual model wrapping (code fences,
// prose around the object) and rejects intents outside the allowed set.
func parseClassification(raw string, allowed []string) (*Classification, error) {
	cleaned := cleanJSONResponse(raw)

	var cls Classification
	if err := json.Unmarshal([]byte(cleaned), &cls); err != nil {
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}

	known := false
	for _, intent := range allowed {
		if cls.Intent == intent {
			known = true
			break
		}
	}
	if !known {
		cls.Intent = "unknown"
	}

	if cls.Confidence > MaxFallbackConfidence {
		cls.Confidence = MaxFallbackConfidence
	}
	if cls.Confidence < 0 {
		cls.Confidence = 0
	}
	return &cls, nil
}

func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	lastBrace := strings.LastIndex(response, "}")
	if firstBrace == -1 || lastBrace <= firstBrace {
		return response
	}
	return response[firstBrace : lastBrace+1]
}

// guardStyled keeps the stylized text only when every digit run from the
// original survived. Prices and list numbering are facts, not style.
func guardStyled(original, styled string) string {
	styled = strings.TrimSpace(styled)
	if styled == "" || len(styled) > 3*len(original) {
		return original
	}
	for _, run := range digitRuns(original) {
		if !strings.Contains(styled, run) {
			return original
		}
	}
	return styled
}

func digitRuns(s string) []string {
	var runs []string
	var current strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			runs = append(runs, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		runs = append(runs, current.String())
	}
	return runs
}
