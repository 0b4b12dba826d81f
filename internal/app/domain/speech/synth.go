package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const synthesisTimeout = 10 * time.Second

// HTTPSynthesizer speaks the Google-style TTS JSON contract against a
// configured endpoint, usually a proxy that holds the provider credentials.
type HTTPSynthesizer struct {
	url    string
	voice  string
	pacing Pacing
	client *http.Client
	logger *zap.Logger
}

func NewHTTPSynthesizer(url, voice string, logger *zap.Logger) *HTTPSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if voice == "" {
		voice = "pl-PL-Standard-A"
	}
	return &HTTPSynthesizer{
		url:    url,
		voice:  voice,
		pacing: DefaultPacing(),
		client: &http.Client{Timeout: synthesisTimeout},
		logger: logger,
	}
}

type synthesisRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type synthesisResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize posts the text and returns the decoded audio bytes.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var req synthesisRequest
	req.Input.Text = text
	req.Voice.LanguageCode = "pl-PL"
	req.Voice.Name = s.voice
	req.AudioConfig.AudioEncoding = "MP3"
	req.AudioConfig.SpeakingRate = s.pacing.SpeakingRate
	req.AudioConfig.Pitch = s.pacing.Pitch

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal synthesis request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build synthesis request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call TTS service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn("TTS service rejected synthesis",
			zap.Int("status", resp.StatusCode),
			zap.Int("text_len", len(text)))
		return nil, errors.Errorf("TTS service returned %d: %s", resp.StatusCode, string(payload))
	}

	var out synthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode synthesis response")
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, errors.Wrap(err, "decode audio content")
	}
	return audio, nil
}
