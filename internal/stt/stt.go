// Package stt turns audio clips into text.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/star/starseeker/internal/audio"
	"github.com/star/starseeker/internal/httputil"
)

// ErrEmptyTranscript is returned when the recognizer hears nothing.
var ErrEmptyTranscript = errors.New("transcription returned no text")

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (string, error)
}

// Noop rejects every clip; used when speech recognition is disabled.
type Noop struct{}

func (Noop) Transcribe(context.Context, audio.Clip) (string, error) {
	return "", errors.New("speech-to-text not configured: set stt.enabled to transcribe audio")
}

// WhisperClient talks to an OpenAI-compatible transcription endpoint.
type WhisperClient struct {
	endpoint   string
	model      string
	apiKey     string
	language   string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

// NewWhisperClient creates a client for endpoint (scheme, host and optional
// prefix; /v1/audio/transcriptions is appended).
func NewWhisperClient(endpoint, model, apiKey, language string, timeout time.Duration, retries int) *WhisperClient {
	if model == "" {
		model = "whisper-1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &WhisperClient{
		endpoint:   strings.TrimRight(endpoint, "/") + "/v1/audio/transcriptions",
		model:      model,
		apiKey:     apiKey,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
		retry:      httputil.DefaultRetryConfig().Attempts(retries + 1),
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	ctx, span := otel.Tracer("github.com/star/starseeker/internal/stt").Start(ctx, "stt.Transcribe")
	defer span.End()
	span.SetAttributes(attribute.Float64("audio.seconds", clip.Duration().Seconds()))

	wavData, err := clip.WAV()
	if err != nil {
		return "", fmt.Errorf("encoding clip: %w", err)
	}
	name := clip.Name
	if name == "" {
		name = "audio.wav"
	}

	var result transcriptionResponse
	retryErr := httputil.WithRetry(ctx, c.retry, func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			return httputil.Permanent(fmt.Errorf("creating form file: %w", err))
		}
		if _, err = part.Write(wavData); err != nil {
			return httputil.Permanent(fmt.Errorf("writing audio: %w", err))
		}
		if err = writer.WriteField("model", c.model); err != nil {
			return httputil.Permanent(fmt.Errorf("writing model field: %w", err))
		}
		if c.language != "" {
			if err = writer.WriteField("language", c.language); err != nil {
				return httputil.Permanent(fmt.Errorf("writing language field: %w", err))
			}
		}
		if err = writer.Close(); err != nil {
			return httputil.Permanent(fmt.Errorf("closing writer: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
		if err != nil {
			return httputil.Permanent(fmt.Errorf("creating request: %w", err))
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := fmt.Errorf("whisper API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			if httputil.IsRetryableHTTPStatus(resp.StatusCode) {
				return apiErr
			}
			return httputil.Permanent(apiErr)
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return httputil.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
	if retryErr != nil {
		span.RecordError(retryErr)
		return "", retryErr
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
