package ocr

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uitap-dev/uitap/pkg/core"
)

func TestDisabledRecognizer(t *testing.T) {
	_, err := Disabled{}.Recognize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, core.ErrOCRUnavailable) {
		t.Errorf("expected ErrOCRUnavailable, got %v", err)
	}
}

func TestSortByPosition(t *testing.T) {
	words := []Word{
		{Text: "c", Bounds: core.Bounds{X: 10, Y: 50}},
		{Text: "a", Bounds: core.Bounds{X: 5, Y: 10}},
		{Text: "b", Bounds: core.Bounds{X: 200, Y: 10}},
	}
	SortByPosition(words)

	got := words[0].Text + words[1].Text + words[2].Text
	if got != "abc" {
		t.Errorf("sorted order = %q, want abc", got)
	}
}

func TestRemoteRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "image/png" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{
			"words": [
				{"text": "Send", "confidence": 0.97, "bounds": {"x": 100, "y": 300, "width": 200, "height": 80}},
				{"text": "", "confidence": 0.1, "bounds": {"x": 0, "y": 0, "width": 1, "height": 1}},
				{"text": "Alice", "confidence": 0.88, "bounds": {"x": 50, "y": 420, "width": 150, "height": 40}}
			]
		}`))
	}))
	defer srv.Close()

	words, err := NewRemote(srv.URL).Recognize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	// Empty-text entries are dropped.
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Text != "Send" || words[0].Confidence != 0.97 {
		t.Errorf("first word = %+v", words[0])
	}
	if words[0].Bounds != (core.Bounds{X: 100, Y: 300, Width: 200, Height: 80}) {
		t.Errorf("first word bounds = %v", words[0].Bounds)
	}
}

func TestRemoteRecognizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL).Recognize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, core.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestRemoteRecognizeUnreachable(t *testing.T) {
	_, err := NewRemote("http://127.0.0.1:1").Recognize(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, core.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}
