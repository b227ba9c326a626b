package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arcoai/arcochat/internal/chat"
	"github.com/arcoai/arcochat/internal/tui"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question non-interactively",
		Example: `  arcochat ask "How do I hold the bow?"
  arcochat ask how do I practice shifting`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("a question is required")
			}
			return askOnce(question)
		},
	}
}

// askOnce runs a single turn and exits. One-shot questions are not saved
// to the conversation history.
func askOnce(question string) error {
	cfg := initConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	p, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}

	opts := managerOptions(cfg)
	opts.WelcomeQuestions = 0
	mgr := chat.NewManager(p, nil, opts)

	ui := tui.NewPlainIO()
	repl := chat.NewREPL(mgr, ui)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	repl.RunOnce(ctx, question)
	return nil
}
