package cmd

import (
	"context"
	"fmt"
	"time"

	poolrender "github.com/bnema/macaron-cli/internal/adapters/render/pool"
	"github.com/bnema/macaron-cli/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const watchRefreshInterval = time.Second

type poolRefresher interface {
	Refresh(ctx context.Context) (application.PoolSnapshot, error)
}

type watchTickMsg time.Time

type watchSnapshotMsg struct {
	snapshot application.PoolSnapshot
	err      error
}

type watchModel struct {
	ctx            context.Context
	pool           poolRefresher
	events         <-chan application.PoolSnapshot
	spinner        spinner.Model
	recoveryWindow time.Duration
	now            func() time.Time
	snapshot       application.PoolSnapshot
	loaded         bool
	err            error
}

func newWatchModel(ctx context.Context, pool poolRefresher, events <-chan application.PoolSnapshot, recoveryWindow time.Duration, now func() time.Time) watchModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return watchModel{
		ctx:            ctx,
		pool:           pool,
		events:         events,
		spinner:        s,
		recoveryWindow: recoveryWindow,
		now:            now,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh(), m.waitForEvent(), watchTick())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case watchTickMsg:
		return m, tea.Batch(m.refresh(), watchTick())
	case watchSnapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.snapshot = msg.snapshot
		m.loaded = true
		return m, nil
	case eventMsg:
		if !msg.ok {
			return m, nil
		}
		m.snapshot = msg.snapshot
		m.loaded = true
		return m, m.waitForEvent()
	default:
		return m, nil
	}
}

func (m watchModel) View() string {
	if !m.loaded {
		return fmt.Sprintf("%s %s", m.spinner.View(), "Loading macarons...")
	}

	view := poolrender.View(m.snapshot, poolrender.RenderOptions{
		Now:            m.now(),
		RecoveryWindow: m.recoveryWindow,
	})

	return fmt.Sprintf("%s\n\n%s q to quit\n", view, m.spinner.View())
}

type eventMsg struct {
	snapshot application.PoolSnapshot
	ok       bool
}

func (m watchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.pool.Refresh(m.ctx)
		return watchSnapshotMsg{snapshot: snapshot, err: err}
	}
}

func (m watchModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}

	return func() tea.Msg {
		snapshot, ok := <-m.events
		return eventMsg{snapshot: snapshot, ok: ok}
	}
}

func watchTick() tea.Cmd {
	return tea.Tick(watchRefreshInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func newWatchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the pool live, refreshing the recovery countdown every second",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			manager, err := app.poolManager(ctx, nil)
			if err != nil {
				return err
			}

			events, unsubscribe := manager.Subscribe()
			defer unsubscribe()

			p := tea.NewProgram(
				newWatchModel(ctx, manager, events, app.cfg.Policy.RecoveryWindow, app.now),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithContext(ctx),
			)

			finalModel, err := p.Run()
			if err != nil {
				return err
			}

			result, ok := finalModel.(watchModel)
			if !ok {
				return fmt.Errorf("unexpected final watch model type %T", finalModel)
			}

			return result.err
		},
	}
}
