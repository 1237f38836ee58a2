// Package main is the entry point for fichaje. It initializes
// configuration, logging and services, then runs the command line, which
// starts the TUI when no subcommand is given.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/cli"
	"github.com/j-veylop/fichaje-tui/internal/config"
	"github.com/j-veylop/fichaje-tui/internal/logger"
	"github.com/j-veylop/fichaje-tui/internal/services"
	"github.com/j-veylop/fichaje-tui/internal/ui/tabs/clock"
	"github.com/j-veylop/fichaje-tui/internal/ui/tabs/earnings"
	"github.com/j-veylop/fichaje-tui/internal/ui/tabs/history"
	"github.com/j-veylop/fichaje-tui/internal/ui/tabs/info"
	"github.com/j-veylop/fichaje-tui/internal/ui/tabs/profile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// run contains the main application logic, separated for cleaner error handling.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The alt screen owns the terminal, so logs always go to a file.
	if err := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Path:   cfg.LogPath,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	application := &cli.App{
		Manager: svcManager,
		Config:  cfg,
		IsInteractive: func() bool {
			return isTerminal(os.Stdin) && isTerminal(os.Stdout)
		},
		RunTUI: func() error {
			return runTUI(cfg, svcManager)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(application).ExecuteContext(ctx)
}

// runTUI starts polling and blocks until the user quits.
func runTUI(cfg *config.Config, svcManager *services.Manager) error {
	svcManager.Start()

	model := app.NewModel(svcManager)

	state := model.GetState()
	tabs := []app.Tab{
		clock.New(state, cfg),
		history.New(state),
		earnings.New(state),
		profile.New(state),
		info.New(state, cfg, svcManager),
	}
	model.SetTabs(tabs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
