// Package speech implements the speech-to-text collaborator the pipeline
// orchestrator calls after audio extraction, in the same plain net/http
// idiom this service uses for its other external HTTP providers.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	transcriptionURL = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel     = "whisper-1"
)

// Client calls the OpenAI transcription API.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file at audioPath and returns its
// transcript in the requested language. Provider failures are returned
// as-is; the orchestrator surfaces them as a 500 with no in-core retry,
// per the cancellation/timeouts contract.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("speech: open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("speech: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("speech: write audio to form: %w", err)
	}

	if err := writer.WriteField("model", defaultModel); err != nil {
		return "", fmt.Errorf("speech: write model field: %w", err)
	}
	if whisperLanguage := toWhisperLanguage(language); whisperLanguage != "" {
		if err := writer.WriteField("language", whisperLanguage); err != nil {
			return "", fmt.Errorf("speech: write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("speech: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, transcriptionURL, &body)
	if err != nil {
		return "", fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("speech: provider returned %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("speech: decode response: %w", err)
	}

	return parsed.Text, nil
}

// toWhisperLanguage maps the service's fr/en language codes to Whisper's
// ISO-639-1 codes (identical today, kept as a seam for future languages).
func toWhisperLanguage(language string) string {
	switch language {
	case "fr", "en":
		return language
	default:
		return ""
	}
}
