package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/storefront/internal/core/push"
	"github.com/colonyops/storefront/internal/core/styles"
)

// View renders the model.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen, overlays included.
func (m Model) render() string {
	w, h := m.viewWidth(), m.viewHeight()

	content := m.renderPage()
	if m.history != nil {
		content = m.history.Overlay(content, w, h)
	}
	if m.confirm != nil {
		content = m.confirm.Overlay(content, w, h)
	}
	if m.toastView.HasToasts() {
		content = m.toastView.Overlay(content, w, h)
	}
	return content
}

func (m Model) renderPage() string {
	searchBox := styles.SearchBoxStyle
	if m.focus == FocusSearch {
		searchBox = styles.SearchFocusStyle
	}
	emailBox := styles.SearchBoxStyle
	if m.focus == FocusNewsletter {
		emailBox = styles.SearchFocusStyle
	}

	sections := []string{
		m.renderHeader(),
		searchBox.Render(m.searchInput.View()),
		m.renderStatus(),
		m.renderResults(),
		styles.StatusStyle.Render("Newsletter"),
		emailBox.Render(m.emailInput.View()),
		styles.HelpStyle.Render(m.renderHelp()),
	}

	page := lipgloss.JoinVertical(lipgloss.Left, sections...)

	// Pad to full height so overlays anchor to the bottom of the terminal.
	if lines := lipgloss.Height(page); lines < m.viewHeight() {
		page += strings.Repeat("\n", m.viewHeight()-lines)
	}
	return page
}

func (m Model) renderHeader() string {
	title := styles.HeaderStyle.Render(styles.IconStore + " storefront")

	badge := styles.BadgeEmptyStyle.Render(styles.IconCart + " 0")
	if m.cartCount > 0 {
		badge = styles.BadgeStyle.Render(fmt.Sprintf("%s %d", styles.IconCart, m.cartCount))
	}

	parts := []string{title, badge, m.renderPush()}
	if m.build.Version != "" {
		parts = append(parts, styles.StatusStyle.Render(" "+m.build.Version))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) renderPush() string {
	if m.sess.Anonymous() {
		return styles.StatusStyle.Render(" " + styles.IconPlug + " guest")
	}

	label := m.push.State.String()
	color := styles.ColorMuted
	switch m.push.State {
	case push.StateOpen:
		label = "live"
		color = styles.ColorSuccess
	case push.StateReconnecting:
		label = fmt.Sprintf("reconnecting (%d)", m.push.Attempt)
		color = styles.ColorWarning
	}
	return lipgloss.NewStyle().Foreground(color).Render(" " + styles.IconWifi + " " + label)
}

func (m Model) renderStatus() string {
	var parts []string
	if m.searching {
		parts = append(parts, "searching...")
	}
	if m.inFlight > 0 {
		parts = append(parts, fmt.Sprintf("%d request(s) pending", m.inFlight))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return styles.StatusStyle.Render(strings.Join(parts, " • "))
}

func (m Model) renderResults() string {
	if !m.hasQuery {
		return styles.EmptyStateStyle.Render("Start typing to search products")
	}
	if len(m.results) == 0 {
		return styles.EmptyStateStyle.Render(fmt.Sprintf("No products match %q", m.query.Text))
	}

	rows := make([]string, 0, len(m.results)+1)
	for i, r := range m.results {
		row := lipgloss.JoinHorizontal(
			lipgloss.Top,
			styles.ResultNameStyle.Render(r.Name),
			"  ",
			styles.ResultPriceStyle.Render(string(r.Price)),
			"  ",
			styles.ResultURLStyle.Render(r.URL),
		)

		switch {
		case r.ProductID() != "" && r.ProductID() == m.pulseTarget:
			row = styles.ResultPulseStyle.Render(row)
		case m.focus == FocusResults && i == m.selected:
			row = styles.ResultSelectedStyle.Render(row)
		default:
			row = lipgloss.NewStyle().PaddingLeft(2).Render(row)
		}
		rows = append(rows, row)
	}

	if m.focus == FocusResults {
		rows = append(rows, styles.StatusStyle.Render(fmt.Sprintf("  quantity: %d", m.quantity)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderHelp() string {
	k := m.keys
	switch {
	case m.confirm != nil:
		return ""
	case m.history != nil:
		return helpLine(k.Up, k.Down, k.ClearHistory, k.Close)
	case m.focus == FocusResults:
		return helpLine(k.Up, k.Down, k.QtyUp, k.AddToCart, k.FocusSearch, k.NextFocus, k.History, k.DismissToast, k.Quit)
	case m.focus == FocusNewsletter:
		return helpLine(k.Subscribe, k.NextFocus, k.History, k.DismissToast, k.Quit)
	default:
		return helpLine(k.NextFocus, k.History, k.DismissToast, k.DismissToasts, k.Quit)
	}
}
