package commands

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/internal/core/styles"
)

// printer writes leveled, themed status lines for command output.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) line(level notify.Level, format string, args ...any) {
	icon := styles.LevelIcon[string(level)]
	prefix := lipgloss.NewStyle().Foreground(styles.LevelColor(level)).Bold(true).Render(icon)
	_, _ = fmt.Fprintf(p.w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

func (p *printer) Successf(format string, args ...any) { p.line(notify.LevelSuccess, format, args...) }
func (p *printer) Infof(format string, args ...any)    { p.line(notify.LevelInfo, format, args...) }
func (p *printer) Warnf(format string, args ...any)    { p.line(notify.LevelWarning, format, args...) }
func (p *printer) Errorf(format string, args ...any)   { p.line(notify.LevelDanger, format, args...) }

// Printf writes a muted detail line.
func (p *printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintln(p.w, styles.TextMutedStyle.Render(fmt.Sprintf(format, args...)))
}
