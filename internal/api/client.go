// Package api is the HTTP client for the flashcard backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
)

const (
	defaultTimeout = 30 * time.Second

	// Synthesized audio arrives inline as base64, so responses can be large.
	maxResponseSize = 32 << 20
)

var (
	// ErrRequestFailed matches every *RequestError.
	ErrRequestFailed = errors.New("api: request failed")

	// ErrNoSuggestions is returned when the backend had nothing to suggest.
	// It is informational rather than a failure.
	ErrNoSuggestions = notify.NewError(notify.LevelInfo, "No AI suggestion available")
)

// RequestError describes a failed backend call. Message is suitable for
// showing to the user.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }

// Client talks to the flashcard backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url must be absolute, got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "api")),
	}, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// result is the envelope used by deck and card endpoints.
type result struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	DeckID       int64  `json:"deck_id"`
	CardID       int64  `json:"card_id"`
	NextInterval *int   `json:"next_interval"`
}

// statusResult is the envelope used by the AI endpoints.
type statusResult struct {
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	AudioBase64 string         `json:"audio_base64"`
	Suggestions map[string]any `json:"suggestions"`
}

// RateCard submits a review rating for a card.
func (c *Client) RateCard(ctx context.Context, cardID int64, rating int) error {
	path := "/card/" + shinkei.FormatID(cardID) + "/rate"
	var res result
	status, err := c.do(ctx, http.MethodPost, path, map[string]int{"rating": rating}, &res)
	if err != nil {
		return err
	}
	if !res.Success {
		return c.failure(http.MethodPost, path, status, res.Error, "Failed to rate card")
	}
	return nil
}

// GenerateVoice synthesizes speech for text and returns the base64 audio payload.
func (c *Client) GenerateVoice(ctx context.Context, text string) (string, error) {
	const path = "/generate_voice"
	var res statusResult
	status, err := c.do(ctx, http.MethodPost, path, map[string]string{"text": text}, &res)
	if err != nil {
		return "", err
	}
	if res.Status != "success" || res.AudioBase64 == "" {
		return "", c.failure(http.MethodPost, path, status, res.Message, "Error generating audio")
	}
	return res.AudioBase64, nil
}

// EnhanceFlashcard asks the backend to fill the empty entries of fields.
// It returns ErrNoSuggestions when nothing could be suggested.
func (c *Client) EnhanceFlashcard(ctx context.Context, fields map[string]string) (map[string]string, error) {
	const path = "/enhance_flashcard"
	var res statusResult
	status, err := c.do(ctx, http.MethodPost, path, fields, &res)
	if err != nil {
		return nil, err
	}

	switch {
	case res.Status == "no_suggestions":
		return nil, ErrNoSuggestions
	case res.Status == "success" && res.Suggestions != nil:
		out := make(map[string]string, len(res.Suggestions))
		for k, v := range res.Suggestions {
			switch val := v.(type) {
			case nil:
			case string:
				out[k] = val
			default:
				out[k] = fmt.Sprint(val)
			}
		}
		return out, nil
	}
	return nil, c.failure(http.MethodPost, path, status, res.Message, "Error getting AI suggestion")
}

// CreateDeck creates a deck and returns its ID.
func (c *Client) CreateDeck(ctx context.Context, draft shinkei.DeckDraft) (int64, error) {
	const path = "/create_deck"
	var res result
	status, err := c.do(ctx, http.MethodPost, path, draft, &res)
	if err != nil {
		return 0, err
	}
	if !res.Success {
		return 0, c.failure(http.MethodPost, path, status, res.Error, "Failed to create deck")
	}
	return res.DeckID, nil
}

// AddCard adds a card to a deck and returns the new card's ID.
func (c *Client) AddCard(ctx context.Context, deckID int64, draft shinkei.CardDraft) (int64, error) {
	path := "/deck/" + shinkei.FormatID(deckID) + "/add_card"
	var res result
	status, err := c.do(ctx, http.MethodPost, path, draft, &res)
	if err != nil {
		return 0, err
	}
	if !res.Success {
		return 0, c.failure(http.MethodPost, path, status, res.Error, "Failed to add card")
	}
	return res.CardID, nil
}

// DeleteCard archives a card.
func (c *Client) DeleteCard(ctx context.Context, cardID int64) error {
	path := "/card/" + shinkei.FormatID(cardID)
	var res result
	status, err := c.do(ctx, http.MethodDelete, path, nil, &res)
	if err != nil {
		return err
	}
	if !res.Success {
		return c.failure(http.MethodDelete, path, status, res.Error, "Failed to delete card")
	}
	return nil
}

// ListDecks returns every active deck.
func (c *Client) ListDecks(ctx context.Context) ([]shinkei.Deck, error) {
	const path = "/api/decks"
	var decks []shinkei.Deck
	status, err := c.do(ctx, http.MethodGet, path, nil, &decks)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusMultipleChoices {
		return nil, c.failure(http.MethodGet, path, status, "", "Failed to load decks")
	}
	return decks, nil
}

// ListDeckCards returns the active cards of a deck with their review progress.
func (c *Client) ListDeckCards(ctx context.Context, deckID int64) ([]shinkei.Card, error) {
	path := "/api/deck/" + shinkei.FormatID(deckID) + "/cards"
	var cards []shinkei.Card
	status, err := c.do(ctx, http.MethodGet, path, nil, &cards)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusMultipleChoices {
		return nil, c.failure(http.MethodGet, path, status, "", "Failed to load cards")
	}
	return cards, nil
}

// failure builds the error for a response that decoded fine but reported failure.
func (c *Client) failure(method, path string, status int, msg, fallback string) error {
	if msg == "" {
		msg = fallback
		if status >= http.StatusMultipleChoices {
			msg = fmt.Sprintf("%s (HTTP %d)", fallback, status)
		}
	}
	c.logger.Warn("backend reported failure",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("message", msg))
	return &RequestError{Method: method, Path: path, StatusCode: status, Message: msg}
}

// do performs a JSON request and decodes the response body into out. Non-2xx
// responses are decoded as well since the backend reports failures in the body;
// only transport errors and undecodable bodies are returned as errors here.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return 0, &RequestError{Method: method, Path: path, Message: "Network error: could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)))

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return resp.StatusCode, &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode}
		}
		return resp.StatusCode, nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return resp.StatusCode, &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode,
				Message: fmt.Sprintf("Server error (HTTP %d)", resp.StatusCode)}
		}
		return resp.StatusCode, &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	return resp.StatusCode, nil
}
