package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/arcoai/arcochat/internal/assistant"
	"github.com/arcoai/arcochat/internal/config"
	"github.com/arcoai/arcochat/internal/provider"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgFile      string
	modelFlag    string
	providerFlag string
	useTUI       bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "arcochat",
		Short: "Terminal chat with Professor Arco, a violin study assistant",
		Long: "arcochat is a terminal chat widget for a hosted knowledge-base assistant.\n" +
			"Running it with no subcommand starts an interactive conversation.",
		// Running arcochat with no subcommand starts chat mode.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Default TUI on when stdout is a terminal and --tui was not explicitly set.
			if !cmd.Root().PersistentFlags().Changed("tui") && term.IsTerminal(int(os.Stdout.Fd())) {
				useTUI = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/arcochat/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use bubbletea TUI mode (default: auto-detect terminal)")

	// Subcommands
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSetupCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}

	return cfg
}

// providerBaseURLs maps OpenAI-compatible provider names to their base URLs.
var providerBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com",
	"kimi":     "https://api.moonshot.cn/v1",
	"qwen":     "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"groq":     "https://api.groq.com/openai/v1",
}

// buildProvider creates a Provider instance based on configuration.
// "assistant" drives the hosted threads/runs protocol; everything else is
// a direct chat backend.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	// Determine model: CLI flag > config file > provider default.
	model := cfg.Model
	if model == "" {
		model = pc.Model
	}

	switch name {
	case "assistant":
		client := assistant.NewHTTPClient(cfg.OpenAIKey(), pc.BaseURL)
		return assistant.New(client, assistant.Options{
			AssistantID:     cfg.AssistantID,
			VectorStoreID:   cfg.VectorStoreID,
			Model:           model,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			Streaming:       cfg.Streaming,
			PollInterval:    time.Duration(cfg.PollIntervalSeconds) * time.Second,
			PollMaxAttempts: cfg.PollMaxAttempts,
		}), nil
	case "anthropic":
		return provider.NewAnthropicProvider(pc.APIKey, model), nil
	default:
		// All other providers use the OpenAI-compatible API.
		baseURL := pc.BaseURL
		if baseURL == "" {
			if u, ok := providerBaseURLs[name]; ok {
				baseURL = u
			} else {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
		}
		return provider.NewOpenAIProvider(pc.APIKey, baseURL, model), nil
	}
}
