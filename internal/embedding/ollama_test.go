package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllama_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q, want /api/embeddings", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if req.Prompt != "payments 500s" {
			t.Errorf("prompt = %q", req.Prompt)
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "test-model")
	vec, err := o.Embed(context.Background(), "payments 500s")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v", vec)
	}
}

func TestOllama_EmbedServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "missing-model")
	if _, err := o.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error on non-200 status")
	}
}

func TestOllama_EmbedEmptyVector(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "test-model")
	if _, err := o.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error on empty embedding")
	}
}

func TestNewOllama_Defaults(t *testing.T) {
	t.Parallel()

	o := NewOllama("", "")
	if o.endpoint != defaultEndpoint {
		t.Errorf("endpoint = %q", o.endpoint)
	}
	if o.model != defaultModel {
		t.Errorf("model = %q", o.model)
	}
}
