package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeProvider struct {
	name    string
	dim     int
	vectors [][]float32
	err     error
	gotIn   []string
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.gotIn = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *fakeProvider) Name() string   { return f.name }
func (f *fakeProvider) Dimension() int { return f.dim }

func TestClient_EmbedBatchCountMismatch(t *testing.T) {
	p := &fakeProvider{name: "fake", dim: 3, vectors: [][]float32{{1, 2, 3}}}
	c := NewClient(p, 0)

	_, err := c.EmbedBatch(context.Background(), []string{"one", "two"})
	if !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("err = %v, want ErrCountMismatch", err)
	}
}

func TestClient_TruncatesInput(t *testing.T) {
	p := &fakeProvider{name: "fake", dim: 3, vectors: [][]float32{{1}}}
	c := NewClient(p, 10)

	if _, err := c.EmbedBatch(context.Background(), []string{strings.Repeat("x", 100)}); err != nil {
		t.Fatal(err)
	}
	if len(p.gotIn) != 1 || len(p.gotIn[0]) != 10 {
		t.Errorf("provider received %d chars, want 10", len(p.gotIn[0]))
	}
}

func TestClient_EmptyBatch(t *testing.T) {
	c := NewClient(&fakeProvider{name: "fake", dim: 3}, 0)

	out, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", out)
	}
}

func TestOllama_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q, want /api/embed", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		vectors := make([][]float32, len(req.Input))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 0.5}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
	defer srv.Close()

	p, err := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "nomic-embed-text"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d vectors, want 2", len(got))
	}
	if got[1][0] != 1 {
		t.Errorf("vector order not preserved: %v", got)
	}
}

func TestOllama_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "missing"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.EmbedBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q does not mention status", err)
	}
}

func TestNewOllama_Validation(t *testing.T) {
	if _, err := NewOllama(OllamaConfig{Model: "m"}); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewOllama(OllamaConfig{BaseURL: "http://localhost:11434"}); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestOllama_DefaultDimension(t *testing.T) {
	p, err := NewOllama(OllamaConfig{BaseURL: "http://localhost:11434", Model: "nomic-embed-text"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Dimension() != 768 {
		t.Errorf("Dimension() = %d, want 768", p.Dimension())
	}
}
