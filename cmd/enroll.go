package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/attune-labs/conversation-pipeline/clients"
	"github.com/attune-labs/conversation-pipeline/profile"
)

var enrollName string

var enrollCmd = &cobra.Command{
	Use:   "enroll <audio-file>",
	Short: "Enroll a voice profile from a clean speech sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		httpc := clients.NewHTTP()
		embedding, err := httpc.Embed(cmd.Context(), cfg.Services.Embedding.URL, audio)
		if err != nil {
			return fmt.Errorf("computing voice embedding: %w", err)
		}

		store, err := profile.NewStore(cfg.Paths.Profiles)
		if err != nil {
			return err
		}
		defer store.Close()

		p := profile.NewProfile(enrollName, embedding, audio)
		if err := store.Put(p); err != nil {
			return err
		}
		log.WithFields(map[string]interface{}{"name": p.Name, "dims": len(p.Embedding)}).Info("voice profile enrolled")
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List enrolled voice profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profile.NewStore(cfg.Paths.Profiles)
		if err != nil {
			return err
		}
		defer store.Close()

		profiles, err := store.List()
		if err != nil {
			return err
		}
		for _, p := range profiles {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "display name for the profile")
	_ = enrollCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(profilesCmd)
}
