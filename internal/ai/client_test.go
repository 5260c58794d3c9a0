package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionServer(t *testing.T, content string, gotBody *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if gotBody != nil {
			b, _ := io.ReadAll(r.Body)
			*gotBody = string(b)
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseIntentCreate(t *testing.T) {
	t.Parallel()
	var body string
	srv := completionServer(t, `{"action":"create_reminder","command":" 3/21 9:00 看牙醫 ","id":"","ai_message":""}`, &body)
	c := New("test-key", srv.URL, "test-model")

	now := time.Date(2024, 3, 20, 22, 0, 0, 0, time.FixedZone("CST", 8*60*60))
	intent, err := c.ParseIntent(context.Background(), "明天早上九點看牙醫", now)
	if err != nil {
		t.Fatalf("ParseIntent: %v", err)
	}
	if intent.Action != ActionCreate {
		t.Fatalf("Action = %q, want %q", intent.Action, ActionCreate)
	}
	if intent.Command != "3/21 9:00 看牙醫" {
		t.Fatalf("Command = %q", intent.Command)
	}
	if !strings.Contains(body, "2024-03-20 22:00") {
		t.Fatalf("prompt does not carry the current time: %s", body)
	}
	if !strings.Contains(body, `"json_schema"`) {
		t.Fatalf("request does not ask for structured output: %s", body)
	}
}

func TestParseIntentUnknownDefault(t *testing.T) {
	t.Parallel()
	srv := completionServer(t, `{"action":"","command":"","id":"","ai_message":"請問要提醒什麼？"}`, nil)
	c := New("test-key", srv.URL, "test-model")

	intent, err := c.ParseIntent(context.Background(), "提醒我", time.Now())
	if err != nil {
		t.Fatalf("ParseIntent: %v", err)
	}
	if intent.Action != ActionUnknown || intent.AIMessage != "請問要提醒什麼？" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestParseIntentMalformed(t *testing.T) {
	t.Parallel()
	srv := completionServer(t, `not json`, nil)
	c := New("test-key", srv.URL, "test-model")

	if _, err := c.ParseIntent(context.Background(), "hi", time.Now()); err == nil {
		t.Fatal("expected error for malformed model output")
	}
}

func TestParseIntentServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := New("test-key", srv.URL, "test-model")

	if _, err := c.ParseIntent(context.Background(), "hi", time.Now()); err == nil {
		t.Fatal("expected error for failing API")
	}
}
