package commands

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/storefront/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	build tui.BuildInfo
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, build tui.BuildInfo) *TuiCmd {
	return &TuiCmd{
		flags: flags,
		build: build,
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inbox := tui.NewInbox()
	app.Queue.Subscribe(inbox.Present)

	ctrl := app.NewSearch(inbox)
	ctrl.Subscribe(inbox.SearchEvent)

	consumer, err := app.NewConsumer()
	if err != nil {
		return err
	}
	consumer.Subscribe(inbox.PushState)

	m := tui.New(tui.Options{
		Context:       ctx,
		Search:        ctrl,
		Mutations:     app.NewDispatcher(inbox.Registry()),
		Notifications: app.Queue,
		Inbox:         inbox,
		Session:       app.Session,
		BaseURL:       app.Config.Backend.BaseURL,
		HistoryLimit:  app.Config.Notifications.HistoryLimit,
		Build:         cmd.build,
	})

	// The cookie fetch must not delay the first frame; mutations that race
	// it fall back to the server's verdict.
	go app.Prime(ctx)

	if !consumer.Start(ctx) {
		log.Debug().Msg("push channel not started")
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
