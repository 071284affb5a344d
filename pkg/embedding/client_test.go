package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEmbedParsesVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req["prompt"] != "PACIENTE_SEXO:M" {
			t.Fatalf("unexpected prompt %v", req["prompt"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	vector, err := client.Embed(context.Background(), "PACIENTE_SEXO:M")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	if _, err := client.Embed(context.Background(), "texto"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestEmbedSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "nomic-embed-text", 5*time.Second)
	if _, err := client.Embed(context.Background(), "texto"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
