// Package image implements the image-generation collaborator used by the
// preference-driven generation flow to produce a single square dish
// photo for a generated recipe.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const generationsURL = "https://api.openai.com/v1/images/generations"

// Client calls an OpenAI-compatible image generation endpoint.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = "gpt-image-1"
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

type generationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type generationResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// GenerateDishPhoto produces one 1024x1024 image for the given recipe
// title/description and returns its raw bytes and content type. The
// provider may return a remote URL (fetched here) or an inline base64
// payload; both are normalized to bytes before returning.
func (c *Client) GenerateDishPhoto(ctx context.Context, title, description string) ([]byte, string, error) {
	prompt := fmt.Sprintf(
		"A professional, appetizing food photograph of %q. %s Overhead or 45-degree angle, natural lighting, no text or watermarks.",
		title, description,
	)

	body, err := json.Marshal(generationRequest{
		Model:  c.model,
		Prompt: prompt,
		Size:   "1024x1024",
		N:      1,
	})
	if err != nil {
		return nil, "", fmt.Errorf("image: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generationsURL, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("image: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("image: provider returned %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("image: decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, "", fmt.Errorf("image: provider returned no image data")
	}

	entry := parsed.Data[0]
	if entry.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(entry.B64JSON)
		if err != nil {
			return nil, "", fmt.Errorf("image: decode base64 payload: %w", err)
		}
		return raw, "image/png", nil
	}

	if entry.URL != "" {
		return c.fetchRemote(ctx, entry.URL)
	}

	return nil, "", fmt.Errorf("image: provider returned neither a URL nor inline data")
}

func (c *Client) fetchRemote(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("image: create fetch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image: fetch generated image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image: fetch returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", fmt.Errorf("image: read generated image: %w", err)
	}
	return raw, contentType, nil
}
