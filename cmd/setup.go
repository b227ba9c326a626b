package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arcoai/arcochat/internal/assistant"
	"github.com/spf13/cobra"
)

const defaultInstructions = "You are Professor Arco, a patient and encouraging violin teacher. " +
	"Answer questions about violin technique, repertoire, and practice habits, " +
	"grounding your answers in the attached reference material when it applies."

func newSetupCmd() *cobra.Command {
	var (
		name             string
		model            string
		instructions     string
		instructionsFile string
		vectorStore      string
		update           string
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create or update the hosted assistant",
		Long: "setup provisions the hosted assistant with the file-search tool bound\n" +
			"to the configured vector store, and prints the resulting assistant ID.",
		Example: `  arcochat setup --vector-store vs_abc123
  arcochat setup --update asst_abc123 --model gpt-4o`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := initConfig()
			if cfg.OpenAIKey() == "" {
				fmt.Fprintln(os.Stderr, "an OpenAI API key is required (set OPENAI_API_KEY)")
				os.Exit(1)
			}

			if instructionsFile != "" {
				data, err := os.ReadFile(instructionsFile)
				if err != nil {
					return fmt.Errorf("read instructions: %w", err)
				}
				instructions = string(data)
			}
			if vectorStore == "" {
				vectorStore = cfg.VectorStoreID
			}
			if model == "" {
				model = cfg.Model
			}
			if model == "" {
				model = "gpt-4o-mini"
			}

			ac := assistant.AssistantConfig{
				Name:          name,
				Model:         model,
				Instructions:  instructions,
				VectorStoreID: vectorStore,
			}
			client := assistant.NewHTTPClient(cfg.OpenAIKey(), "")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if update == "" {
				update = cfg.AssistantID
			}
			if update != "" {
				if err := client.UpdateAssistant(ctx, update, ac); err != nil {
					return err
				}
				fmt.Printf("Updated assistant %s\n", update)
				return nil
			}

			id, err := client.CreateAssistant(ctx, ac)
			if err != nil {
				return err
			}
			fmt.Printf("Created assistant %s\n", id)
			fmt.Println("Save it to your config:")
			fmt.Printf("  assistant_id: %s\n", id)
			fmt.Println("or export ARCO_ASSISTANT_ID.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Professor Arco", "assistant display name")
	cmd.Flags().StringVar(&model, "model", "", "backing model (default from config, then gpt-4o-mini)")
	cmd.Flags().StringVar(&instructions, "instructions", defaultInstructions, "assistant instructions")
	cmd.Flags().StringVar(&instructionsFile, "instructions-file", "", "read instructions from a file")
	cmd.Flags().StringVar(&vectorStore, "vector-store", "", "knowledge-base vector store id (default from config)")
	cmd.Flags().StringVar(&update, "update", "", "update an existing assistant id instead of creating one")

	return cmd
}
