package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/uitap-dev/uitap/pkg/core"
)

// RemoteRecognizer posts screenshots to an OCR HTTP service and extracts
// the recognized words from its JSON response. The expected shape is
//
//	{"words": [{"text": "...", "confidence": 0.97,
//	            "bounds": {"x": 1, "y": 2, "width": 3, "height": 4}}, ...]}
type RemoteRecognizer struct {
	endpoint string
	client   *http.Client
}

// NewRemote creates a recognizer for the given endpoint URL.
func NewRemote(endpoint string) *RemoteRecognizer {
	return &RemoteRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Recognize sends the screenshot as PNG and parses the response.
func (r *RemoteRecognizer) Recognize(ctx context.Context, screenshot image.Image) ([]Word, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, screenshot); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, core.ErrTransport.WithMessage("ocr request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, core.ErrTransport.WithMessage("ocr response read failed").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.ErrTransport.WithMessage(
			fmt.Sprintf("ocr service returned %d", resp.StatusCode))
	}

	var words []Word
	gjson.GetBytes(body, "words").ForEach(func(_, w gjson.Result) bool {
		text := w.Get("text").String()
		if text == "" {
			return true
		}
		words = append(words, Word{
			Text:       text,
			Confidence: w.Get("confidence").Float(),
			Bounds: core.Bounds{
				X:      int(w.Get("bounds.x").Int()),
				Y:      int(w.Get("bounds.y").Int()),
				Width:  int(w.Get("bounds.width").Int()),
				Height: int(w.Get("bounds.height").Int()),
			},
		})
		return true
	})

	return words, nil
}
