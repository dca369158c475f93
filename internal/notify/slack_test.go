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

func TestSlackNotifier_Deliver(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST request, got %s", r.Method)
		}

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Deliver(context.Background(), Message{
		Channel: ChannelDaily,
		Title:   "Daily report",
		Body:    "**Filtered vendors:** Acme\n\n[EUVD-1](https://euvd.example/EUVD-1)",
	})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	text, _ := payload["text"].(string)
	for _, want := range []string{"*Daily report*", "*Filtered vendors:* Acme", "<https://euvd.example/EUVD-1|EUVD-1>"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in text %q", want, text)
		}
	}
}

func TestSlackNotifier_Deliver_HighPriority(t *testing.T) {
	var payload struct {
		Text        string `json:"text"`
		Attachments []struct {
			Color string `json:"color"`
			Text  string `json:"text"`
		} `json:"attachments"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Deliver(context.Background(), Message{Title: "Alert", Body: "x", HighPriority: true})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(payload.Attachments) != 1 || payload.Attachments[0].Color != "danger" {
		t.Errorf("expected one danger attachment, got %+v", payload.Attachments)
	}
}

func TestSlackNotifier_Deliver_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Deliver(context.Background(), Message{Body: "test"})
	if err == nil {
		t.Error("expected error for non-OK status code, got nil")
	}
}

func TestSlackNotifier_Deliver_MissingURL(t *testing.T) {
	err := NewSlackNotifier("").Deliver(context.Background(), Message{Body: "test"})
	if err == nil {
		t.Error("expected error for missing webhook URL, got nil")
	}
}

func TestToMrkdwn(t *testing.T) {
	in := "# Title\n**bold** and ~~gone~~ [x](https://x.example)"
	want := "*Title*\n*bold* and ~gone~ <https://x.example|x>"
	if got := toMrkdwn(in); got != want {
		t.Errorf("toMrkdwn() = %q, want %q", got, want)
	}
}
