package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// --- Voice embedding (/embed) ---
type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed submits a short audio buffer and returns the service's
// fixed-length voice embedding for it.
func (h *HTTP) Embed(ctx context.Context, url string, audio []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/embed", bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed %s: %s", resp.Status, string(body))
	}

	var out embedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed decode: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding in response")
	}
	return out.Embedding, nil
}

// EmbeddingService binds the Embed call to a configured base URL.
type EmbeddingService struct {
	HTTP *HTTP
	URL  string
}

func (s *EmbeddingService) Embed(ctx context.Context, audio []byte) ([]float64, error) {
	return s.HTTP.Embed(ctx, s.URL, audio)
}
