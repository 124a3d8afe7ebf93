// Package styles provides shared lipgloss v2 styles for CLI and TUI components.
package styles

import (
	"image/color"

	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/storefront/internal/core/notify"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

var (
	ColorPrimary    color.Color
	ColorSecondary  color.Color
	ColorForeground color.Color
	ColorMuted      color.Color
	ColorBackground color.Color
	ColorSurface    color.Color
	ColorSuccess    color.Color
	ColorWarning    color.Color
	ColorError      color.Color
)

var (
	// CLI styles.
	CommandHeaderStyle lipgloss.Style
	DividerStyle       lipgloss.Style

	// Storefront chrome.
	HeaderStyle      lipgloss.Style
	SearchBoxStyle   lipgloss.Style
	SearchFocusStyle lipgloss.Style
	BadgeStyle       lipgloss.Style
	BadgeEmptyStyle  lipgloss.Style
	StatusStyle      lipgloss.Style
	HelpStyle        lipgloss.Style

	// Result list.
	ResultNameStyle     lipgloss.Style
	ResultPriceStyle    lipgloss.Style
	ResultURLStyle      lipgloss.Style
	ResultSelectedStyle lipgloss.Style
	ResultPulseStyle    lipgloss.Style
	EmptyStateStyle     lipgloss.Style

	// Toasts.
	ToastStyle      lipgloss.Style
	ToastTitleStyle lipgloss.Style

	// Modals.
	ModalStyle      lipgloss.Style
	ModalTitleStyle lipgloss.Style
	ModalHelpStyle  lipgloss.Style

	// Text.
	TextMutedStyle   lipgloss.Style
	TextErrorStyle   lipgloss.Style
	TextSurfaceStyle lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorForeground = p.Foreground
	ColorMuted = p.Muted
	ColorBackground = p.Background
	ColorSurface = p.Surface
	ColorSuccess = p.Success
	ColorWarning = p.Warning
	ColorError = p.Error

	CommandHeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	DividerStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		PaddingRight(2)
	SearchBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1)
	SearchFocusStyle = SearchBoxStyle.
		BorderForeground(ColorPrimary)
	BadgeStyle = lipgloss.NewStyle().
		Background(ColorError).
		Foreground(ColorForeground).
		Bold(true).
		Padding(0, 1)
	BadgeEmptyStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)
	StatusStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	HelpStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		MarginTop(1)

	ResultNameStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Bold(true)
	ResultPriceStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess)
	ResultURLStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	ResultSelectedStyle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(ColorPrimary).
		PaddingLeft(1)
	ResultPulseStyle = ResultSelectedStyle.
		BorderForeground(ColorSuccess).
		Background(ColorSurface)
	EmptyStateStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Italic(true).
		Padding(1, 2)

	ToastStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(40)
	ToastTitleStyle = lipgloss.NewStyle().
		Bold(true)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2)
	ModalTitleStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	ModalHelpStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		MarginTop(1)

	TextMutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	TextErrorStyle = lipgloss.NewStyle().Foreground(ColorError)
	TextSurfaceStyle = lipgloss.NewStyle().Foreground(ColorSurface)
}

// LevelColor maps a notification level to its palette color.
func LevelColor(l notify.Level) color.Color {
	switch l {
	case notify.LevelSuccess:
		return ColorSuccess
	case notify.LevelWarning:
		return ColorWarning
	case notify.LevelDanger:
		return ColorError
	default:
		return ColorSecondary
	}
}

// ToastFor returns the toast border style for a level.
func ToastFor(l notify.Level) lipgloss.Style {
	return ToastStyle.BorderForeground(LevelColor(l))
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
