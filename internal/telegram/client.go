package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultAPIBase is the public Bot API host.
const DefaultAPIBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API over HTTP. The base URL is
// injectable so tests can point it at a local server.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
}

// NewClient builds a Client. A nil httpClient gets a 15s-timeout default;
// an empty apiBase falls back to DefaultAPIBase.
func NewClient(token, apiBase string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{httpClient: httpClient, apiBase: apiBase, token: token}
}

// apiResponse is the Bot API envelope every method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// SendMessageParams are the sendMessage arguments the bot uses.
type SendMessageParams struct {
	ChatID      string `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

// SendPhotoParams are the sendPhoto arguments the bot uses. Photo is either
// a Telegram file id or a public URL.
type SendPhotoParams struct {
	ChatID      string `json:"chat_id"`
	Photo       string `json:"photo"`
	Caption     string `json:"caption,omitempty"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

// SendMessage delivers a text message, HTML-parsed by default.
func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) error {
	if p.ParseMode == "" {
		p.ParseMode = "HTML"
	}
	_, err := c.call(ctx, "sendMessage", p)
	return err
}

// SendPhoto delivers a photo with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, p SendPhotoParams) error {
	if p.ParseMode == "" {
		p.ParseMode = "HTML"
	}
	_, err := c.call(ctx, "sendPhoto", p)
	return err
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing its progress spinner. Text, when set, appears as a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	_, err := c.call(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": callbackID,
		"text":              text,
	})
	return err
}

// FileURL resolves a file id to its short-lived download URL via getFile.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	raw, err := c.call(ctx, "getFile", map[string]string{"file_id": fileID})
	if err != nil {
		return "", err
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("telegram: decode getFile result: %w", err)
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("telegram: getFile returned empty file_path for %s", fileID)
	}
	return fmt.Sprintf("%s/file/bot%s/%s", c.apiBase, c.token, f.FilePath), nil
}

// call POSTs one Bot API method as JSON and unwraps the response envelope.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s params: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		log.Warn().
			Str("method", method).
			Int("error_code", env.ErrorCode).
			Str("description", env.Description).
			Msg("telegram api call rejected")
		return nil, fmt.Errorf("telegram: %s failed: %s (code %d)", method, env.Description, env.ErrorCode)
	}
	return env.Result, nil
}
