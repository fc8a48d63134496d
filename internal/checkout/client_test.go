package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClient_CreateSession(t *testing.T) {
	ctx := context.Background()

	request := &CreateSessionRequest{
		Mode:     "payment",
		Currency: "usd",
		LineItems: []LineItem{
			{Name: "Widget", UnitAmount: 1999, Quantity: 2},
		},
		Metadata: map[string]string{"user_id": "u1"},
	}

	t.Run("session created", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/checkout/sessions" {
				t.Errorf("path = %s, want /v1/checkout/sessions", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer sk_test" {
				t.Errorf("authorization = %s, want bearer secret", r.Header.Get("Authorization"))
			}

			var got CreateSessionRequest
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if got.Mode != "payment" || len(got.LineItems) != 1 {
				t.Errorf("unexpected request body: %+v", got)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(Session{ID: "cs_123", PublishableKey: "pk_test"})
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "sk_test", time.Second)
		session, err := client.CreateSession(ctx, request)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.ID != "cs_123" {
			t.Errorf("session id = %s, want cs_123", session.ID)
		}
		if session.PublishableKey != "pk_test" {
			t.Errorf("publishable key = %s, want pk_test", session.PublishableKey)
		}
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "sk_test", time.Second)
		if _, err := client.CreateSession(ctx, request); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("empty session id maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Session{})
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "sk_test", time.Second)
		if _, err := client.CreateSession(ctx, request); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("client error is not retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "sk_test", time.Second)
		_, err := client.CreateSession(ctx, request)
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, ErrUnavailable) {
			t.Fatal("4xx must not map to ErrUnavailable")
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		client := NewHTTPClient("http://127.0.0.1:1", "sk_test", 100*time.Millisecond)
		if _, err := client.CreateSession(ctx, request); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestParseEvent(t *testing.T) {
	t.Run("completed event", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_1",
			"type": "checkout.session.completed",
			"data": {"object": {"id": "cs_1", "metadata": {"user_id": "u1", "cart_json": "[]"}}}
		}`)

		event, err := ParseEvent(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Type != EventTypeSessionCompleted {
			t.Errorf("type = %s, want %s", event.Type, EventTypeSessionCompleted)
		}
		if event.Data.Object.ID != "cs_1" {
			t.Errorf("session id = %s, want cs_1", event.Data.Object.ID)
		}
		if event.Data.Object.Metadata["user_id"] != "u1" {
			t.Error("metadata not preserved")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := ParseEvent([]byte(`{not json`)); err == nil {
			t.Fatal("expected error")
		}
	})
}
