package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultTTSBaseURL = "https://api.elevenlabs.io"

// Synthesizer calls the ElevenLabs text-to-speech API. Responses stream MP3;
// the whole stream is read into memory before the caller writes it anywhere.
type Synthesizer struct {
	apiKey       string
	baseURL      string
	modelID      string
	outputFormat string
	httpClient   *http.Client
	log          *zap.Logger
}

// SynthesizerOptions configures a Synthesizer. BaseURL is overridable for
// tests; the remaining fields come from configuration.
type SynthesizerOptions struct {
	APIKey       string
	BaseURL      string
	ModelID      string
	OutputFormat string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// NewSynthesizer builds an ElevenLabs client with a pooled transport and
// explicit dial/TLS timeouts.
func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultTTSBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		modelID:      opts.ModelID,
		outputFormat: opts.OutputFormat,
		log:          opts.Logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
				TLSHandshakeTimeout: 3 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

// Synthesize converts text to MP3 audio with the given provider voice id.
// Transport failures and 5xx responses are retried once after a short
// backoff; 4xx responses fail immediately.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		audio, retryable, err := s.synthesizeOnce(ctx, text, voiceID)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		s.log.Warn("tts attempt failed, retrying", zap.Error(err))
	}
	return nil, lastErr
}

func (s *Synthesizer) synthesizeOnce(ctx context.Context, text, voiceID string) (audio []byte, retryable bool, err error) {
	body, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": s.modelID,
	})
	if err != nil {
		return nil, false, err
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		s.baseURL, url.PathEscape(voiceID), url.QueryEscape(s.outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode >= 500, fmt.Errorf("elevenlabs %d: %s", resp.StatusCode, b)
	}
	audio, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if len(audio) == 0 {
		return nil, true, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, false, nil
}
