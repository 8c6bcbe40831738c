package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/attune-labs/conversation-pipeline/clients"
	"github.com/attune-labs/conversation-pipeline/media"
	"github.com/attune-labs/conversation-pipeline/orchestrator"
	"github.com/attune-labs/conversation-pipeline/profile"
)

var profileID string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio-file>",
	Short: "Run the full pipeline on a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audioPath := args[0]
		audio, err := os.ReadFile(audioPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", audioPath, err)
		}

		var reference []float64
		if profileID != "" {
			store, err := profile.NewStore(cfg.Paths.Profiles)
			if err != nil {
				return err
			}
			p, err := store.Get(profileID)
			closeErr := store.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				log.WithError(closeErr).Warn("failed to close profile store")
			}
			reference = p.Embedding
			log.WithField("profile", p.Name).Info("using enrolled voice profile")
		}

		httpc := clients.NewHTTP()
		deps := orchestrator.Deps{
			Diarizer: &clients.DiarizationService{HTTP: httpc, URL: cfg.Services.Diarization.URL},
			Embedder: &clients.EmbeddingService{HTTP: httpc, URL: cfg.Services.Embedding.URL},
			Prosody: &clients.ProsodyService{
				HTTP: httpc,
				URL:  cfg.Services.Prosody.URL,
				Poll: clients.PollConfig{Interval: cfg.Prosody.PollInterval, MaxPolls: cfg.Prosody.MaxPolls},
			},
			Extractor: media.NewExtractor(cfg.Extractor.FFmpegPath, cfg.Extractor.ScratchDir, log.WithField("component", "extractor")),
			Log:       log.WithField("component", "pipeline"),
		}

		p := orchestrator.NewPipeline(deps, cfg.Matching.Threshold)
		analysis, err := p.Run(cmd.Context(), audio, filepath.Base(audioPath), reference)
		if err != nil {
			return err
		}

		runID, outPath, err := orchestrator.Persist(cfg.Paths.Outputs, audioPath, analysis)
		if err != nil {
			return fmt.Errorf("writing analysis: %w", err)
		}
		log.WithFields(map[string]interface{}{"run_id": runID, "speakers": len(analysis.Speakers)}).Info("analysis complete")
		fmt.Fprintln(cmd.OutOrStdout(), outPath)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&profileID, "profile", "", "enrolled voice profile id to match the owner against")
	rootCmd.AddCommand(analyzeCmd)
}
