package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscordNotifier_Deliver(t *testing.T) {
	receivedContent := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST request, got %s", r.Method)
		}

		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}

		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		receivedContent = payload["content"]

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(server.URL)
	err := notifier.Deliver(context.Background(), Message{Title: "Alert", Body: "Hello Discord!"})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if want := "**Alert**\n\nHello Discord!"; receivedContent != want {
		t.Errorf("expected content %q, got %q", want, receivedContent)
	}
}

func TestDiscordNotifier_Deliver_Splits(t *testing.T) {
	var parts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		parts = append(parts, payload["content"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	line := strings.Repeat("x", 99) + "\n"
	body := strings.Repeat(line, 50)

	if err := NewDiscordNotifier(server.URL).Deliver(context.Background(), Message{Body: body}); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(parts) < 3 {
		t.Fatalf("expected the body to be split, got %d parts", len(parts))
	}
	for i, p := range parts {
		if len(p) > discordLimit {
			t.Errorf("part %d has %d bytes", i, len(p))
		}
	}
}

func TestDiscordNotifier_Deliver_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewDiscordNotifier(server.URL).Deliver(context.Background(), Message{Body: "test"})
	if err == nil {
		t.Error("expected error for non-OK status code, got nil")
	}
}

func TestDiscordNotifier_Deliver_MissingURL(t *testing.T) {
	err := NewDiscordNotifier("").Deliver(context.Background(), Message{Body: "test"})
	if err == nil {
		t.Error("expected error for missing webhook URL, got nil")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("unexpected split of short text: %q", got)
	}

	got := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	want := []string{"aaaa\nbbbb", "cccc"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitMessage() = %q, want %q", got, want)
	}

	long := strings.Repeat("é", 10) // 20 bytes
	for _, p := range splitMessage(long, 7) {
		if len(p) > 7 || !strings.HasPrefix(p, "é") {
			t.Errorf("bad chunk %q", p)
		}
	}
}
