package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/storefront/internal/core/notify"
	"github.com/colonyops/storefront/pkg/iojson"
)

var errHistoryDisabled = errors.New("notification history is disabled (notifications.history: false)")

type NotificationsCmd struct {
	flags *Flags

	// list flags
	limit  int
	format string
	match  string
	wrap   int

	// clear flags
	yes bool
}

// NewNotificationsCmd creates a new notifications command
func NewNotificationsCmd(flags *Flags) *NotificationsCmd {
	return &NotificationsCmd{flags: flags}
}

// Register adds the notifications command to the application
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "Inspect notification history",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List past notifications, newest first",
				UsageText: "storefront notifications list [--limit N] [--format table|json|markdown] [--match GLOB]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "limit",
						Aliases:     []string{"n"},
						Usage:       "maximum number of notifications (0 for all)",
						Value:       20,
						Destination: &cmd.limit,
					},
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (table, json, markdown)",
						Value:       "table",
						Destination: &cmd.format,
					},
					&cli.StringFlag{
						Name:        "match",
						Usage:       "only show notifications whose title matches a glob (e.g. 'Err*')",
						Destination: &cmd.match,
					},
					&cli.IntFlag{
						Name:        "wrap",
						Usage:       "word wrap width for markdown output",
						Value:       80,
						Destination: &cmd.wrap,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "clear",
				Usage:     "Delete all notification history",
				UsageText: "storefront notifications clear [--yes]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip confirmation",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *NotificationsCmd) runList(ctx context.Context, c *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}
	if app.DB == nil {
		return errHistoryDisabled
	}

	limit := cmd.limit
	if cmd.match != "" {
		// Filtering happens after the query.
		limit = 0
	}

	records, err := app.Queue.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	records, err = filterByTitle(records, cmd.match)
	if err != nil {
		return err
	}
	if cmd.limit > 0 && len(records) > cmd.limit {
		records = records[:cmd.limit]
	}

	out := c.Root().Writer
	switch cmd.format {
	case "json":
		for _, r := range records {
			if err := iojson.WriteLine(out, toRecordJSON(r)); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	case "markdown", "md":
		return writeMarkdown(out, records, cmd.wrap, isTerminal(os.Stdout))
	case "table":
		if len(records) == 0 {
			_, _ = fmt.Fprintln(c.Root().ErrWriter, "No notifications found")
			return nil
		}
		writeTable(out, records)
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected table, json or markdown)", cmd.format)
	}
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, _ *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}
	if app.DB == nil {
		return errHistoryDisabled
	}

	if !cmd.yes {
		if !isTerminal(os.Stdin) {
			return errors.New("refusing to clear history without --yes")
		}
		confirmed := false
		err := huh.NewConfirm().
			Title("Delete all notification history?").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	if err := app.Queue.ClearHistory(ctx); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// recordJSON is the JSON output format for notifications list --format json.
type recordJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

func toRecordJSON(r notify.Record) recordJSON {
	return recordJSON{
		ID:        r.ID,
		Title:     r.Title,
		Message:   r.Message,
		Level:     string(r.Level),
		CreatedAt: r.CreatedAt,
	}
}

// filterByTitle keeps records whose title matches the doublestar glob
// pattern. An empty pattern keeps everything.
func filterByTitle(records []notify.Record, pattern string) ([]notify.Record, error) {
	if pattern == "" {
		return records, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid --match pattern %q", pattern)
	}

	out := records[:0:0]
	for _, r := range records {
		if ok, _ := doublestar.Match(pattern, r.Title); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func writeTable(w io.Writer, records []notify.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tLEVEL\tTITLE\tMESSAGE")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.CreatedAt.Local().Format(time.DateTime), r.Level, r.Title, r.Message)
	}
	_ = tw.Flush()
}

// notificationsMarkdown renders records as a markdown document.
func notificationsMarkdown(records []notify.Record) string {
	var b strings.Builder
	b.WriteString("# Notifications\n\n")
	if len(records) == 0 {
		b.WriteString("_No notifications._\n")
		return b.String()
	}
	for _, r := range records {
		fmt.Fprintf(&b, "- **%s** `%s` %s  \n  _%s_\n", r.Title, r.Level, r.Message, r.CreatedAt.Local().Format(time.DateTime))
	}
	return b.String()
}

func writeMarkdown(w io.Writer, records []notify.Record, wrap int, styled bool) error {
	style := "notty"
	if styled {
		style = "dark"
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}

	rendered, err := renderer.Render(notificationsMarkdown(records))
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
