package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	lipgloss "charm.land/lipgloss/v2"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/styles"
)

const (
	historyModalWidthPct  = 65
	historyModalMinWidth  = 60
	historyModalMaxHeight = 30
	historyModalMargin    = 4
	historyModalChrome    = 6 // title + divider + help + spacing
)

// History is the persisted notification history. notify.Queue implements it.
type History interface {
	History(ctx context.Context, limit int) ([]notify.Record, error)
	ClearHistory(ctx context.Context) error
}

// HistoryModal displays a scrollable history of notifications.
type HistoryModal struct {
	source   History
	limit    int
	viewport viewport.Model
}

// NewHistoryModal creates a modal showing up to limit past notifications.
func NewHistoryModal(source History, limit, width, height int) *HistoryModal {
	modalWidth := calcHistoryModalWidth(width)
	modalHeight := min(height-historyModalMargin, historyModalMaxHeight)
	contentHeight := max(modalHeight-historyModalChrome, 1)

	vp := viewport.New(
		viewport.WithWidth(modalWidth-4), // account for modal padding
		viewport.WithHeight(contentHeight),
	)

	m := &HistoryModal{
		source:   source,
		limit:    limit,
		viewport: vp,
	}

	m.refreshContent()
	return m
}

func (m *HistoryModal) refreshContent() {
	if m.source == nil {
		m.viewport.SetContent(styles.TextMutedStyle.Render("No notifications"))
		return
	}

	history, err := m.source.History(context.Background(), m.limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load notification history")
		m.viewport.SetContent(styles.TextErrorStyle.Render(fmt.Sprintf("failed to load notifications: %v", err)))
		return
	}

	if len(history) == 0 {
		m.viewport.SetContent(styles.TextMutedStyle.Render("No notifications"))
		return
	}

	var b strings.Builder
	for i, r := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(formatHistoryRecord(r))
	}

	m.viewport.SetContent(b.String())
}

func formatHistoryRecord(r notify.Record) string {
	ts := styles.TextMutedStyle.Render(r.CreatedAt.Local().Format("15:04:05"))
	icon := lipgloss.NewStyle().
		Foreground(styles.LevelColor(r.Level)).
		Render(styles.LevelIcon[string(r.Level)])

	return fmt.Sprintf("%s %s %s %s", ts, icon, styles.ToastTitleStyle.Render(r.Title), r.Message)
}

// ScrollUp scrolls the viewport up.
func (m *HistoryModal) ScrollUp() {
	m.viewport.ScrollUp(1)
}

// ScrollDown scrolls the viewport down.
func (m *HistoryModal) ScrollDown() {
	m.viewport.ScrollDown(1)
}

// Clear deletes all history and refreshes the view.
func (m *HistoryModal) Clear() error {
	if m.source == nil {
		return nil
	}
	if err := m.source.ClearHistory(context.Background()); err != nil {
		return err
	}
	m.refreshContent()
	return nil
}

// Content returns the rendered history without modal chrome.
func (m *HistoryModal) Content() string {
	return m.viewport.View()
}

// Overlay renders the history modal centered over the background.
func (m *HistoryModal) Overlay(background string, width, height int) string {
	modalWidth := calcHistoryModalWidth(width)
	modalHeight := min(height-historyModalMargin, historyModalMaxHeight)

	scrollInfo := ""
	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		scrollInfo = styles.TextMutedStyle.Render(
			fmt.Sprintf(" (%.0f%%)", m.viewport.ScrollPercent()*100),
		)
	}

	divider := styles.TextSurfaceStyle.Render(strings.Repeat("─", max(modalWidth-6, 1)))
	modalContent := lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ModalTitleStyle.Render(styles.IconBell+" Notifications"+scrollInfo),
		divider,
		m.viewport.View(),
		styles.ModalHelpStyle.Render("[j/k] scroll  [D] clear all  [esc] close"),
	)

	modal := styles.ModalStyle.
		Width(modalWidth).
		Height(modalHeight).
		Render(modalContent)

	bgLayer := lipgloss.NewLayer(background)
	modalLayer := lipgloss.NewLayer(modal)

	modalW := lipgloss.Width(modal)
	modalH := lipgloss.Height(modal)
	centerX := max((width-modalW)/2, 0)
	centerY := max((height-modalH)/2, 0)
	modalLayer.X(centerX).Y(centerY).Z(1)

	compositor := lipgloss.NewCompositor(bgLayer, modalLayer)
	return compositor.Render()
}

func calcHistoryModalWidth(termWidth int) int {
	available := max(termWidth-historyModalMargin, 1)
	target := termWidth * historyModalWidthPct / 100
	return min(max(target, historyModalMinWidth), available)
}
