package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// DiarizedUtterance is one speech turn as returned by the diarization
// service. Timestamps are milliseconds on the source recording.
type DiarizedUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

// Transcript is the all-or-nothing diarization result. Speakers lists the
// distinct labels in first-seen order; every utterance references one of
// them.
type Transcript struct {
	Speakers   []string            `json:"speakers"`
	Utterances []DiarizedUtterance `json:"utterances"`
}

func (h *HTTP) Transcribe(ctx context.Context, url string, audio []byte, filename string) (*Transcript, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(fw, bytes.NewReader(audio)); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/diarize", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarize %s: %s", resp.Status, string(body))
	}

	var out Transcript
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}
	if len(out.Speakers) == 0 {
		out.Speakers = distinctSpeakers(out.Utterances)
	}
	return &out, nil
}

// distinctSpeakers derives the label set in first-seen order when the
// service omits the speakers list.
func distinctSpeakers(utts []DiarizedUtterance) []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range utts {
		if !seen[u.Speaker] {
			seen[u.Speaker] = true
			out = append(out, u.Speaker)
		}
	}
	return out
}

// DiarizationService binds the Transcribe call to a configured base URL.
type DiarizationService struct {
	HTTP *HTTP
	URL  string
}

func (s *DiarizationService) Transcribe(ctx context.Context, audio []byte, filename string) (*Transcript, error) {
	return s.HTTP.Transcribe(ctx, s.URL, audio, filename)
}
