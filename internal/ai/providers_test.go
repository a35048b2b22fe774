package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUnsplashSearchImage(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("client_id")
		w.Write([]byte(`{"results": [{"urls": {"regular": "https://images.unsplash.com/photo-1"}}]}`))
	}))
	defer srv.Close()

	p := NewUnsplashProvider("key-123", 50, time.Second).WithEndpoint(srv.URL)
	got, err := p.SearchImage(context.Background(), "Tomato Soup")
	if err != nil {
		t.Fatalf("SearchImage error: %v", err)
	}
	if got != "https://images.unsplash.com/photo-1" {
		t.Errorf("url = %q", got)
	}
	if gotQuery != "Tomato Soup" || gotKey != "key-123" {
		t.Errorf("query, key = %q, %q", gotQuery, gotKey)
	}
}

func TestUnsplashSearchImage_Failures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"no results": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": []}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range tests {
		srv := httptest.NewServer(handler)
		p := NewUnsplashProvider("key", 50, time.Second).WithEndpoint(srv.URL)
		if _, err := p.SearchImage(context.Background(), "soup"); err == nil {
			t.Errorf("%s: expected error", name)
		}
		srv.Close()
	}
}

func TestUnsplashSearchImage_Budget(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"results": [{"urls": {"regular": "https://x"}}]}`))
	}))
	defer srv.Close()

	p := NewUnsplashProvider("key", 2, time.Second).WithEndpoint(srv.URL)
	p.SearchImage(context.Background(), "a")
	p.SearchImage(context.Background(), "b")
	_, err := p.SearchImage(context.Background(), "c")
	if !errors.Is(err, ErrImageBudgetExhausted) {
		t.Errorf("third lookup = %v, want ErrImageBudgetExhausted", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestHuggingFaceComplete(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer hf-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "1", "object": "chat.completion", "choices": [{"index": 0, "message": {"role": "assistant", "content": "[]"}, "finish_reason": "stop"}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf-key", srv.URL, "test-model", time.Second)
	got, err := p.Complete(context.Background(), "be brief", "recipes about soup")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "[]" {
		t.Errorf("content = %q, want []", got)
	}
	if req.Model != "test-model" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Errorf("request = %+v", req)
	}
}

func TestHuggingFaceComplete_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf-key", srv.URL, "test-model", time.Second)
	if _, err := p.Complete(context.Background(), "", "soup"); err == nil {
		t.Error("expected error on 429")
	}
}
