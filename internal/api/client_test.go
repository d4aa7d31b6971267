package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/shinkei"
)

// recordedRequest captures what the fake backend received.
type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := json.Unmarshal(data, &rec.Body); err != nil {
				t.Errorf("request body is not JSON: %s", data)
			}
		}
		reqs = append(reqs, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &reqs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:5000", 0, nil); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestRateCard(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "next_interval": 6})
	})

	if err := c.RateCard(context.Background(), 42, 3); err != nil {
		t.Fatalf("RateCard: %v", err)
	}
	got := (*reqs)[0]
	if got.Method != http.MethodPost || got.Path != "/card/42/rate" {
		t.Errorf("request = %s %s", got.Method, got.Path)
	}
	if got.Body["rating"] != float64(3) {
		t.Errorf("body = %v", got.Body)
	}
}

func TestRateCardFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantMsg string
	}{
		{"backend error", http.StatusOK, map[string]any{"success": false, "error": "Card progress not found"}, "Card progress not found"},
		{"no message", http.StatusOK, map[string]any{"success": false}, "Failed to rate card"},
		{"server error with envelope", http.StatusInternalServerError, map[string]any{"success": false, "error": "Database error"}, "Database error"},
		{"server error without envelope", http.StatusInternalServerError, map[string]any{}, "Failed to rate card (HTTP 500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			err := c.RateCard(context.Background(), 1, 1)
			if !errors.Is(err, ErrRequestFailed) {
				t.Fatalf("expected ErrRequestFailed, got %v", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			var re *RequestError
			if !errors.As(err, &re) || re.StatusCode != tt.status {
				t.Errorf("RequestError = %+v", re)
			}
		})
	}
}

func TestNonJSONErrorPage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})
	err := c.RateCard(context.Background(), 1, 2)
	if err == nil || err.Error() != "Server error (HTTP 502)" {
		t.Fatalf("err = %v", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = c.RateCard(context.Background(), 1, 2)
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	var re *RequestError
	if !errors.As(err, &re) || re.Err == nil {
		t.Fatalf("expected wrapped transport error, got %+v", re)
	}
}

func TestGenerateVoice(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "audio_base64": "AAAA"})
	})
	got, err := c.GenerateVoice(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateVoice: %v", err)
	}
	if got != "AAAA" {
		t.Errorf("payload = %q", got)
	}
	if r := (*reqs)[0]; r.Path != "/generate_voice" || r.Body["text"] != "hello" {
		t.Errorf("request = %+v", r)
	}
}

func TestGenerateVoiceFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantMsg string
	}{
		{"error status", http.StatusInternalServerError, map[string]any{"status": "error", "message": "Failed to generate audio: quota"}, "Failed to generate audio: quota"},
		{"missing payload", http.StatusOK, map[string]any{"status": "success"}, "Error generating audio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.GenerateVoice(context.Background(), "hello")
			if err == nil || err.Error() != tt.wantMsg {
				t.Fatalf("err = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestEnhanceFlashcard(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"suggestions": map[string]any{
				"hanzi":        "你好",
				"measure_word": "个, 位",
				"srs_level":    2,
				"notes":        nil,
			},
		})
	})
	got, err := c.EnhanceFlashcard(context.Background(), map[string]string{"english": "hello", "hanzi": ""})
	if err != nil {
		t.Fatalf("EnhanceFlashcard: %v", err)
	}
	if got["hanzi"] != "你好" || got["measure_word"] != "个, 位" || got["srs_level"] != "2" {
		t.Errorf("suggestions = %v", got)
	}
	if _, ok := got["notes"]; ok {
		t.Error("null suggestion should be dropped")
	}
	if body := (*reqs)[0].Body; body["english"] != "hello" || body["hanzi"] != "" {
		t.Errorf("body = %v", body)
	}
}

func TestEnhanceFlashcardNoSuggestions(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "no_suggestions"})
	})
	_, err := c.EnhanceFlashcard(context.Background(), map[string]string{"english": "hello"})
	if !errors.Is(err, ErrNoSuggestions) {
		t.Fatalf("expected ErrNoSuggestions, got %v", err)
	}
	if notify.LevelOf(err) != notify.LevelInfo {
		t.Errorf("no suggestions should be informational")
	}
}

func TestCreateDeck(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deck_id": 7})
	})
	id, err := c.CreateDeck(context.Background(), shinkei.NewDeckDraft("HSK 1", "basics", "HSK", "1"))
	if err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d", id)
	}
	body := (*reqs)[0].Body
	if body["name"] != "HSK 1" || body["level"] != "1" || body["category"] != "HSK" {
		t.Errorf("body = %v", body)
	}
}

func TestCreateDeckFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Deck name is required"})
	})
	if _, err := c.CreateDeck(context.Background(), shinkei.DeckDraft{}); err == nil || err.Error() != "Deck name is required" {
		t.Fatalf("err = %v", err)
	}
}

func TestAddCard(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "card_id": 99})
	})
	draft := shinkei.CardDraft{Hanzi: "你好", English: "hello", AudioBase64: "AAAA"}
	id, err := c.AddCard(context.Background(), 3, draft)
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if id != 99 {
		t.Errorf("id = %d", id)
	}
	r := (*reqs)[0]
	if r.Path != "/deck/3/add_card" || r.Body["base64_audio"] != "AAAA" || r.Body["hanzi"] != "你好" {
		t.Errorf("request = %+v", r)
	}
}

func TestDeleteCard(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/card/404" {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Card not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	if err := c.DeleteCard(context.Background(), 5); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if r := (*reqs)[0]; r.Method != http.MethodDelete || r.Path != "/card/5" {
		t.Errorf("request = %+v", r)
	}
	if err := c.DeleteCard(context.Background(), 404); err == nil || err.Error() != "Card not found" {
		t.Errorf("err = %v", err)
	}
}

func TestListDecks(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"HSK 1","category":"HSK","level":"1","card_count":12,"created_at":"2025-01-01 10:00:00"},
			{"id":2,"name":"Food","level":null,"card_count":0}]`)
	})
	decks, err := c.ListDecks(context.Background())
	if err != nil {
		t.Fatalf("ListDecks: %v", err)
	}
	if len(decks) != 2 || decks[0].CardCount != 12 || decks[0].Level != "1" || decks[1].Level != "" {
		t.Errorf("decks = %+v", decks)
	}
}

func TestListDeckCards(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":10,"deck_id":2,"hanzi":"猫","pinyin":"māo","english":"cat","srs_level":1,"next_review":"2025-01-01 00:00:00","is_archived":0},
			{"id":11,"deck_id":2,"hanzi":"狗","english":"dog","srs_level":null,"next_review":null}]`)
	})
	cards, err := c.ListDeckCards(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListDeckCards: %v", err)
	}
	if (*reqs)[0].Path != "/api/deck/2/cards" {
		t.Errorf("path = %s", (*reqs)[0].Path)
	}
	if len(cards) != 2 || cards[0].Level() != 1 || cards[1].SRSLevel != nil {
		t.Errorf("cards = %+v", cards)
	}
}

func TestListDecksServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, []any{})
	})
	_, err := c.ListDecks(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Failed to load decks") {
		t.Fatalf("err = %v", err)
	}
}
