// Package cli provides the fichaje command line: the cobra commands that
// drive the service manager directly, and the default action that starts
// the TUI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/fichaje-tui/internal/config"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services"
	"github.com/j-veylop/fichaje-tui/internal/services/backend"
)

// App holds what the commands need.
type App struct {
	Manager *services.Manager
	Config  *config.Config

	// RunTUI starts the interactive client. Nil means the TUI is not
	// available and the bare command prints the status instead.
	RunTUI func() error

	// IsInteractive reports whether stdin is a terminal, which decides
	// whether missing flags are asked for with a form.
	IsInteractive func() bool

	// Now is the clock used for elapsed times and calendar buckets.
	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) location() *time.Location {
	if a.Config != nil && a.Config.Location != nil {
		return a.Config.Location
	}
	return time.Local
}

// requireSession fails with a hint when nobody is logged in.
func (a *App) requireSession() (models.Session, error) {
	sess, ok := a.Manager.Session()
	if !ok {
		return models.Session{}, errors.New("not logged in, run `fichaje login` first")
	}
	return sess, nil
}

// snapshot refreshes from the backend and falls back to the cache. The
// returned warning is set when the records are the cached copy.
func (a *App) snapshot(ctx context.Context, offline bool) (services.Snapshot, string, error) {
	if _, err := a.requireSession(); err != nil {
		return services.Snapshot{}, "", err
	}
	if offline {
		snap, err := a.Manager.CachedSnapshot()
		if err != nil {
			return services.Snapshot{}, "", fmt.Errorf("failed to read cached records: %w", err)
		}
		return snap, "showing cached records", nil
	}

	snap, err := a.Manager.Refresh(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || snap.FetchedAt.IsZero() {
			return services.Snapshot{}, "", explain(err)
		}
		return snap, fmt.Sprintf("offline (%v), showing cached records", err), nil
	}
	return snap, "", nil
}

// explain rewrites the errors users hit most into something actionable.
func explain(err error) error {
	switch {
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrNoSession):
		return fmt.Errorf("session expired, run `fichaje login` again: %w", err)
	case errors.Is(err, services.ErrNoOpenRecord):
		return errors.New("you are not clocked in")
	case errors.Is(err, backend.ErrNotFound):
		return fmt.Errorf("record not found: %w", err)
	}
	return err
}

// NewRootCmd creates the top-level "fichaje" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "fichaje",
		Short:         "Clock in and out, and track worked hours and earnings",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.RunTUI != nil && app.interactive() {
				return app.RunTUI()
			}
			return runStatus(cmd, app)
		},
	}

	root.AddCommand(
		newLoginCmd(app),
		newRegisterCmd(app),
		newLogoutCmd(app),
		newRecoverCmd(app),
		newInCmd(app),
		newOutCmd(app),
		newStatusCmd(app),
		newHistoryCmd(app),
		newSummaryCmd(app),
		newEarningsCmd(app),
		newOvertimeCmd(app),
		newDeleteCmd(app),
		newProfileCmd(app),
		newVersionCmd(),
	)

	return root
}
