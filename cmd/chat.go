package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arcoai/arcochat/internal/chat"
	"github.com/arcoai/arcochat/internal/config"
	"github.com/arcoai/arcochat/internal/history"
	"github.com/arcoai/arcochat/internal/tui"
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
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

	store, closeStore, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open conversation history:", err)
		os.Exit(1)
	}
	defer closeStore()

	mgr := chat.NewManager(p, store, managerOptions(cfg))

	if useTUI {
		return tui.RunTUI(func(ui tui.IO) error {
			repl := chat.NewREPL(mgr, ui)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			return repl.Run(ctx)
		})
	}

	// Plain IO mode (default)
	ui := tui.NewPlainIO()
	repl := chat.NewREPL(mgr, ui)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First Ctrl+C aborts the in-flight turn; with nothing in flight it
	// exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			if !ui.CancelTurn() {
				cancel()
				return
			}
		}
	}()

	return repl.Run(ctx)
}

// managerOptions maps configuration onto the session manager.
func managerOptions(cfg *config.Config) chat.Options {
	return chat.Options{
		Model:              cfg.Model,
		Temperature:        cfg.Temperature,
		TopP:               cfg.TopP,
		PromptAugmentation: cfg.PromptAugmentation,
		CancelNotice:       cfg.CancelNotice,
		WelcomeQuestions:   cfg.WelcomeQuestions,
	}
}

// openHistory builds the conversation store from config: SQLite by default,
// one-file-per-key storage with `history.backend: file`.
func openHistory(cfg *config.Config) (*history.Store, func(), error) {
	switch cfg.History.Backend {
	case "", "sqlite":
		path := cfg.History.Path
		if path == "" {
			var err error
			path, err = history.DefaultDBPath()
			if err != nil {
				return nil, nil, err
			}
		}
		kv, err := history.NewSQLiteKV(path)
		if err != nil {
			return nil, nil, err
		}
		store, err := history.NewStore(kv)
		if err != nil {
			kv.Close()
			return nil, nil, err
		}
		return store, func() { kv.Close() }, nil
	case "file":
		dir := cfg.History.Path
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, err
			}
			dir = home + "/.local/share/arcochat/history"
		}
		kv, err := history.NewFileKV(dir)
		if err != nil {
			return nil, nil, err
		}
		store, err := history.NewStore(kv)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}
