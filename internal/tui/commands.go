package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/formdialog"
	"github.com/feridsherif/crms-frontend/internal/listsync"
)

type listLoadedMsg struct {
	entity string
	err    error
}

type savedMsg struct {
	entity string
	record domain.Record
	err    error
}

type deletedMsg struct {
	entity string
	id     string
	err    error
}

func loadCmd(ctx context.Context, s *listsync.Synchronizer) tea.Cmd {
	return func() tea.Msg {
		return listLoadedMsg{entity: s.Entity(), err: s.Load(ctx)}
	}
}

func queryCmd(ctx context.Context, s *listsync.Synchronizer, patch listsync.QueryPatch) tea.Cmd {
	return func() tea.Msg {
		return listLoadedMsg{entity: s.Entity(), err: s.SetQuery(ctx, patch)}
	}
}

func refreshCmd(ctx context.Context, s *listsync.Synchronizer) tea.Cmd {
	return func() tea.Msg {
		return listLoadedMsg{entity: s.Entity(), err: s.Refresh(ctx)}
	}
}

func submitCmd(ctx context.Context, d *formdialog.Dialog) tea.Cmd {
	return func() tea.Msg {
		rec, err := d.Submit(ctx)
		return savedMsg{entity: d.Entity().Name, record: rec, err: err}
	}
}

func deleteCmd(ctx context.Context, console Console, s *listsync.Synchronizer, id string) tea.Cmd {
	return func() tea.Msg {
		if err := console.Delete(ctx, s.Entity(), id); err != nil {
			if domain.IsNotFound(err) {
				// Already gone on the backend; drop the stale row.
				_ = s.Refresh(ctx)
			}
			return deletedMsg{entity: s.Entity(), id: id, err: err}
		}
		// A failed refresh surfaces through the list state.
		_ = s.Refresh(ctx)
		return deletedMsg{entity: s.Entity(), id: id}
	}
}

// superseded fetches are replaced by a newer one and are not worth reporting.
func superseded(err error) bool {
	return errors.Is(err, listsync.ErrSuperseded)
}
