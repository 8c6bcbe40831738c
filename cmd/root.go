// Package cmd wires the command-line interface around the pipeline.
package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/attune-labs/conversation-pipeline/config"
)

var (
	cfgPath    string
	dumpConfig bool

	cfg *config.Root
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "conversation-pipeline",
	Short: "Per-speaker emotional analysis of multi-speaker recordings",
	Long: "conversation-pipeline diarizes a recording, extracts each speaker's audio,\n" +
		"matches speakers against an enrolled voice profile and scores their\n" +
		"utterances with prosody-based emotion dimensions.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		log.SetLevel(level)
		if cfg.Log.Format == "json" {
			log.SetFormatter(&logrus.JSONFormatter{})
		}

		if dumpConfig {
			out, err := cfg.Dump()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&dumpConfig, "dump-config", false, "print the effective configuration")
}

func Execute() error {
	return rootCmd.Execute()
}
