package tui

import (
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/storefront/internal/core/styles"
)

// Modal represents a confirmation dialog.
type Modal struct {
	title           string
	message         string
	visible         bool
	confirmSelected bool // true = confirm button selected, false = cancel button selected
}

// NewModal creates a new modal with the given title and message.
func NewModal(title, message string) Modal {
	return Modal{
		title:           title,
		message:         message,
		visible:         true,
		confirmSelected: true,
	}
}

// ToggleSelection switches the selected button.
func (m *Modal) ToggleSelection() {
	m.confirmSelected = !m.confirmSelected
}

// ConfirmSelected returns true if the confirm button is selected.
func (m Modal) ConfirmSelected() bool {
	return m.confirmSelected
}

// Visible returns whether the modal should be displayed.
func (m Modal) Visible() bool {
	return m.visible
}

// Overlay renders the modal centered over the given background content.
func (m Modal) Overlay(background string, width, height int) string {
	if !m.visible {
		return background
	}

	button := lipgloss.NewStyle().Padding(0, 2).Foreground(styles.ColorMuted)
	selected := button.Foreground(styles.ColorBackground).Background(styles.ColorPrimary).Bold(true)

	confirmBtn, cancelBtn := button.Render("Confirm"), selected.Render("Cancel")
	if m.confirmSelected {
		confirmBtn, cancelBtn = selected.Render("Confirm"), button.Render("Cancel")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, confirmBtn, "  ", cancelBtn)
	buttonRow := lipgloss.NewStyle().MarginTop(1).Render(buttons)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ModalTitleStyle.Render(m.title),
		"",
		m.message,
		buttonRow,
		styles.ModalHelpStyle.Render("←/→ select  enter confirm  esc cancel"),
	)

	modal := styles.ModalStyle.Render(content)

	bgLayer := lipgloss.NewLayer(background)
	modalLayer := lipgloss.NewLayer(modal)
	modalLayer.
		X(max((width-lipgloss.Width(modal))/2, 0)).
		Y(max((height-lipgloss.Height(modal))/2, 0)).
		Z(3)

	return lipgloss.NewCompositor(bgLayer, modalLayer).Render()
}
