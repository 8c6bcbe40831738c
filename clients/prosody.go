package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var (
	// ErrAnalysisTimeout means the prosody job did not reach a terminal
	// state within the configured polling budget.
	ErrAnalysisTimeout = errors.New("prosody analysis timed out")
	// ErrAnalysisFailed means the remote job reported failure.
	ErrAnalysisFailed = errors.New("prosody analysis failed")
)

// EmotionScore is one named emotion dimension in [0,1].
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ProsodyUtterance is one scored speech turn from the prosody service.
// Timestamps are seconds relative to the submitted audio buffer.
type ProsodyUtterance struct {
	Text     string         `json:"text"`
	Start    float64        `json:"start"`
	End      float64        `json:"end"`
	Emotions []EmotionScore `json:"emotions"`
}

// PollConfig bounds the prosody job's polling loop.
type PollConfig struct {
	Interval time.Duration
	MaxPolls int
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 150
	}
	return c
}

// --- Prosody job API (submit / status / predictions) ---

type prosodySubmitResp struct {
	JobID string `json:"job_id"`
}

type prosodyStatusResp struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

type prosodyPredictionsResp struct {
	Predictions []ProsodyUtterance `json:"predictions"`
}

// AnalyzeProsody runs the full async-job flow against the prosody
// service: submit the audio, poll the job until it reaches a terminal
// state, then fetch the flattened predictions. The polling loop enforces
// the PollConfig budget and fails with ErrAnalysisTimeout past it.
func (h *HTTP) AnalyzeProsody(ctx context.Context, url string, audio []byte, label string, cfg PollConfig) ([]ProsodyUtterance, error) {
	cfg = cfg.withDefaults()

	jobID, err := h.submitProsodyJob(ctx, url, audio, label)
	if err != nil {
		return nil, err
	}

	for i := 0; i < cfg.MaxPolls; i++ {
		st, err := h.prosodyJobStatus(ctx, url, jobID)
		if err != nil {
			return nil, err
		}
		switch st.State {
		case "succeeded", "completed":
			return h.prosodyPredictions(ctx, url, jobID)
		case "failed":
			return nil, fmt.Errorf("%w: job %s: %s", ErrAnalysisFailed, jobID, st.Message)
		}
		if i == cfg.MaxPolls-1 {
			break
		}
		select {
		case <-time.After(cfg.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: job %s after %d polls", ErrAnalysisTimeout, jobID, cfg.MaxPolls)
}

func (h *HTTP) submitProsodyJob(ctx context.Context, url string, audio []byte, label string) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", label+".wav")
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(fw, bytes.NewReader(audio)); err != nil {
		return "", err
	}
	if err = w.WriteField("identifier", label); err != nil {
		return "", err
	}
	if err = w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/jobs", &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("prosody submit %s: %s", resp.Status, string(body))
	}

	var out prosodySubmitResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("prosody submit decode: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("prosody submit: empty job id")
	}
	return out.JobID, nil
}

func (h *HTTP) prosodyJobStatus(ctx context.Context, url, jobID string) (*prosodyStatusResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("prosody status %s: %s", resp.Status, string(body))
	}

	var out prosodyStatusResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("prosody status decode: %w", err)
	}
	return &out, nil
}

func (h *HTTP) prosodyPredictions(ctx context.Context, url, jobID string) ([]ProsodyUtterance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/jobs/"+jobID+"/predictions", nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("prosody predictions %s: %s", resp.Status, string(body))
	}

	var out prosodyPredictionsResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("prosody predictions decode: %w", err)
	}
	return out.Predictions, nil
}

// ProsodyService binds the prosody job flow to a configured base URL and
// polling budget.
type ProsodyService struct {
	HTTP *HTTP
	URL  string
	Poll PollConfig
}

func (s *ProsodyService) Analyze(ctx context.Context, audio []byte, label string) ([]ProsodyUtterance, error) {
	return s.HTTP.AnalyzeProsody(ctx, s.URL, audio, label, s.Poll)
}
