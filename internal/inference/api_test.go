package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/temirov/docsmith/internal/types"
)

func TestAPIProviderReturnsResponse(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/generate" {
			http.NotFound(writer, request)
			return
		}
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"model":"deepseek-r1","response":"# Title","done":true}` + "\n"))
	}))
	defer server.Close()

	tracker := &recordingTracker{}
	provider, err := NewAPIProvider(server.URL, server.Client(), func(string) Tracker { return tracker })
	if err != nil {
		t.Fatalf("NewAPIProvider error: %v", err)
	}
	output, err := provider.Generate(context.Background(), "deepseek-r1", "write a readme")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if output != "# Title" {
		t.Fatalf("unexpected output %q", output)
	}
	if received["model"] != "deepseek-r1" || received["prompt"] != "write a readme" || received["stream"] != false {
		t.Fatalf("unexpected request body %v", received)
	}
	if !tracker.succeeded || tracker.stopped != 1 {
		t.Fatalf("unexpected tracker state %+v", tracker)
	}
}

func TestAPIProviderSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusNotFound)
		_, _ = writer.Write([]byte(`{"error":"model not found"}` + "\n"))
	}))
	defer server.Close()

	provider, err := NewAPIProvider(server.URL, server.Client(), nil)
	if err != nil {
		t.Fatalf("NewAPIProvider error: %v", err)
	}
	_, err = provider.Generate(context.Background(), "absent", "prompt")
	if err == nil || err.Error() != "model not found" {
		t.Fatalf("expected 'model not found', got %v", err)
	}
	if !errors.Is(err, types.ErrProcessFailure) {
		t.Fatalf("expected ErrProcessFailure, got %v", err)
	}
}

func TestNewAPIProviderRejectsInvalidHost(t *testing.T) {
	if _, err := NewAPIProvider("not a url", nil, nil); err == nil {
		t.Fatalf("expected error for invalid host")
	}
}
