package tui

import (
	"strings"

	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/styles"
)

const toastWidth = 44

// ToastView renders the queue's visible records and composites them as an
// overlay. The queue owns lifetimes; the view only draws what it is given.
type ToastView struct {
	records []notify.Record
}

func NewToastView() *ToastView {
	return &ToastView{}
}

// SetRecords replaces the rendered records, in presentation order.
func (v *ToastView) SetRecords(records []notify.Record) {
	v.records = records
}

// HasToasts returns true if there are any records to draw.
func (v *ToastView) HasToasts() bool {
	return len(v.records) > 0
}

// View renders the toast stack as a single string with toasts stacked
// vertically (oldest at top, newest at bottom).
func (v *ToastView) View() string {
	if len(v.records) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(v.records))
	for _, r := range v.records {
		rendered = append(rendered, renderToast(r))
	}

	return strings.Join(rendered, "\n")
}

func renderToast(r notify.Record) string {
	title := styles.ToastTitleStyle.
		Foreground(styles.LevelColor(r.Level)).
		Render(styles.LevelIcon[string(r.Level)] + " " + r.Title)

	return styles.ToastFor(r.Level).
		Width(toastWidth).
		Render(title + "\n" + r.Message)
}

// Overlay composites the toast stack over background in the lower-right corner.
func (v *ToastView) Overlay(background string, width, height int) string {
	toastContent := v.View()
	if toastContent == "" {
		return background
	}

	bgLayer := lipgloss.NewLayer(background)
	toastLayer := lipgloss.NewLayer(toastContent)

	toastW := lipgloss.Width(toastContent)
	toastH := lipgloss.Height(toastContent)

	rightX := max(width-toastW-1, 0)
	bottomY := max(height-toastH, 0)

	toastLayer.X(rightX).Y(bottomY).Z(2)

	compositor := lipgloss.NewCompositor(bgLayer, toastLayer)
	return compositor.Render()
}
