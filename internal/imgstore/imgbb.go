// Package imgstore persists user-submitted photos to a public image host.
// Telegram file URLs embed the bot token and expire, so every accepted
// photo is re-hosted before its URL is stored in a payload.
package imgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the imgbb upload API.
const DefaultEndpoint = "https://api.imgbb.com/1/upload"

// Uploader re-hosts images on imgbb. The endpoint is injectable for tests.
type Uploader struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewUploader builds an Uploader. A nil httpClient gets a 30s-timeout
// default; an empty endpoint falls back to DefaultEndpoint.
func NewUploader(apiKey, endpoint string, httpClient *http.Client) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Uploader{httpClient: httpClient, endpoint: endpoint, apiKey: apiKey}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadFromURL hands a source image URL to imgbb and returns the hosted
// copy's permanent URL.
func (u *Uploader) UploadFromURL(ctx context.Context, srcURL string) (string, error) {
	form := url.Values{}
	form.Set("key", u.apiKey)
	form.Set("image", srcURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("imgstore: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgstore: upload: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("imgstore: read upload response: %w", err)
	}

	var out uploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("imgstore: decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success || out.Data.URL == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("http status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("imgstore: upload rejected: %s", msg)
	}
	return out.Data.URL, nil
}
