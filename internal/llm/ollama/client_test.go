package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SelahattinNazli/OCR-Service/internal/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewClient(Config{
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, nil)
	return c, srv
}

func TestGenerate_RequestShape(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type = %q", ct)
		}
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream *bool  `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Model != "test-model" {
			t.Fatalf("model = %q", body.Model)
		}
		if body.Prompt != "the prompt" {
			t.Fatalf("prompt = %q", body.Prompt)
		}
		if body.Stream == nil || *body.Stream {
			t.Fatal("stream must be present and false")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": "ok"}`))
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	reply, err := client.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestGenerate_EnvelopePrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top-level response", `{"response": "top"}`, "top"},
		{"nested data list", `{"data": [{"response": "nested"}]}`, "nested"},
		{"top-level wins", `{"response": "top", "data": [{"response": "nested"}]}`, "top"},
		{"neither is empty not error", `{"something": "else"}`, ""},
		{"empty data list", `{"data": []}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})
			defer srv.Close()

			reply, err := client.Generate(context.Background(), "p")
			if err != nil {
				t.Fatalf("Generate error: %v", err)
			}
			if reply != tt.want {
				t.Fatalf("reply = %q, want %q", reply, tt.want)
			}
		})
	}
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	var calls int32
	client, srv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *common.GenerationAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one attempt, got %d", got)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"response": "too late"}`))
	})
	defer srv.Close()
	client.cfg.Timeout = 20 * time.Millisecond
	client.http.Timeout = 20 * time.Millisecond

	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var apiErr *common.GenerationAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
}

func TestGenerate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	client := NewClient(Config{BaseURL: url, Model: "m", Timeout: time.Second}, nil)
	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *common.GenerationAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if got := err.Error(); !strings.HasPrefix(got, "generation API error:") {
		t.Fatalf("error text = %q", got)
	}
}

func TestGenerate_NonJSONBody(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>proxy error</html>"))
	})
	defer srv.Close()

	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *common.GenerationAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
}
