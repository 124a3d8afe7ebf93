package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/storefront/internal/core/search"
	"github.com/colonyops/storefront/internal/core/sinks"
	"github.com/colonyops/storefront/pkg/iojson"
)

type SearchCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
	timeout    time.Duration
}

// NewSearchCmd creates a new search command
func NewSearchCmd(flags *Flags) *SearchCmd {
	return &SearchCmd{flags: flags}
}

// Register adds the search command to the application
func (cmd *SearchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "search",
		Usage:     "Search the product catalog",
		UsageText: "storefront search [--json] <text>",
		Description: `Runs a single product search through the same debounced controller the
TUI uses and prints the results.

Input shorter than search.min_length clears results instead of querying.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output results as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "how long to wait for results",
				Value:       15 * time.Second,
				Destination: &cmd.timeout,
			},
		},
		Action: cmd.run,
	})

	return app
}

// jsonRenderer prints each result as a JSON line.
type jsonRenderer struct {
	w io.Writer
}

func (r jsonRenderer) Show(_ search.Query, results []search.Result) {
	for _, res := range results {
		_ = iojson.WriteLine(r.w, res)
	}
}

func (jsonRenderer) Clear() {}

func (cmd *SearchCmd) run(ctx context.Context, c *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}

	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("search text is required")
	}

	var renderer search.Renderer = sinks.NewConsole(c.Root().Writer)
	if cmd.jsonOutput {
		renderer = jsonRenderer{w: c.Root().Writer}
	}

	ctrl := app.NewSearch(renderer)
	done := make(chan search.Event, 1)
	ctrl.Subscribe(func(ev search.Event) {
		switch ev.Kind {
		case search.EventRendered, search.EventFailed, search.EventCleared:
			select {
			case done <- ev:
			default:
			}
		}
	})

	ctrl.Submit(text)

	ctx, cancel := context.WithTimeout(ctx, cmd.timeout)
	defer cancel()

	select {
	case ev := <-done:
		return searchResult(ev, app.Config.Search.MinLength)
	case <-ctx.Done():
		return fmt.Errorf("search %q: %w", text, ctx.Err())
	}
}

func searchResult(ev search.Event, minLength int) error {
	switch ev.Kind {
	case search.EventFailed:
		return fmt.Errorf("search failed: %w", ev.Err)
	case search.EventCleared:
		return fmt.Errorf("search text must be at least %d characters", minLength)
	default:
		return nil
	}
}
