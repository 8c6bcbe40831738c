package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ResultBundle wraps the terminal analysis with run metadata for the
// downstream consumers that pick it up from disk.
type ResultBundle struct {
	RunID       string                `json:"run_id"`
	AudioPath   string                `json:"audio_path"`
	GeneratedAt time.Time             `json:"generated_at"`
	Analysis    *ConversationAnalysis `json:"analysis"`
}

func mkRunDir(outputsRoot string) (string, string, error) {
	ts := time.Now().Format("20060102-150405")
	rid := "run_" + ts
	dir := filepath.Join(outputsRoot, rid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return rid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persist writes the analysis as indented JSON into a timestamped run
// directory under outputsRoot and returns the run id and file path.
func Persist(outputsRoot, audioPath string, analysis *ConversationAnalysis) (runID, path string, err error) {
	rid, outDir, err := mkRunDir(outputsRoot)
	if err != nil {
		return "", "", err
	}

	p := filepath.Join(outDir, "analysis.json")
	bundle := ResultBundle{
		RunID:       rid,
		AudioPath:   audioPath,
		GeneratedAt: time.Now(),
		Analysis:    analysis,
	}
	if err = writeJSON(p, bundle); err != nil {
		return "", "", err
	}
	return rid, p, nil
}
