package pool

import (
	"math"
	"strings"
	"time"

	"github.com/bnema/macaron-cli/internal/application"
	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	iconFull  = "●"
	iconEmpty = "○"
	barWidth  = 24
)

type RenderOptions struct {
	Now            time.Time
	RecoveryWindow time.Duration
	// Notice is an extra line shown under the pool, typically the throttled recovery message.
	Notice string
}

func renderView(snapshot application.PoolSnapshot, opts RenderOptions, s styles) string {
	policy := domain.Policy{Capacity: snapshot.Capacity}
	lines := []string{
		s.title.Render("Macarons"),
		lipgloss.JoinHorizontal(lipgloss.Top, renderIcons(snapshot, s), " ", s.header.Render(domain.StatusLine(snapshot.Count, policy))),
		playLine(snapshot, s),
	}

	if line := recoveryLine(snapshot, opts, s); line != "" {
		lines = append(lines, line)
	}

	if notice := strings.TrimSpace(opts.Notice); notice != "" {
		lines = append(lines, s.notice.Render(notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderIcons(snapshot application.PoolSnapshot, s styles) string {
	count := snapshot.Count
	if count < 0 {
		count = 0
	}
	if count > snapshot.Capacity {
		count = snapshot.Capacity
	}

	return s.iconFull.Render(strings.Repeat(iconFull, count)) +
		s.iconEmpty.Render(strings.Repeat(iconEmpty, snapshot.Capacity-count))
}

func playLine(snapshot application.PoolSnapshot, s styles) string {
	if snapshot.CanPlay {
		return s.ready.Render(domain.PlayStatus(true))
	}

	return s.waiting.Render(domain.PlayStatus(false))
}

func recoveryLine(snapshot application.PoolSnapshot, opts RenderOptions, s styles) string {
	now := opts.Now
	if now.IsZero() {
		now = snapshot.AsOf
	}

	remaining, ok := snapshot.RecoveryIn(now)
	if !ok || remaining <= 0 {
		return ""
	}

	label := s.detail.Render("Recharge dans " + domain.Countdown(remaining))
	if opts.RecoveryWindow <= 0 {
		return label
	}

	elapsed := opts.RecoveryWindow - remaining
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderProgressBar(elapsed.Seconds()/opts.RecoveryWindow.Seconds(), barWidth, s),
		" ",
		label,
	)
}

func renderProgressBar(fraction float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampFraction(fraction)))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
