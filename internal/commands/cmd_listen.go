package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/storefront/internal/core/push"
	"github.com/colonyops/storefront/internal/core/sinks"
)

type ListenCmd struct {
	flags *Flags
}

// NewListenCmd creates a new listen command
func NewListenCmd(flags *Flags) *ListenCmd {
	return &ListenCmd{flags: flags}
}

// Register adds the listen command to the application
func (cmd *ListenCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "listen",
		Usage:     "Print push notifications as they arrive",
		UsageText: "storefront listen --user-id <id>",
		Description: `Opens the push channel for the session user and prints every notification
until interrupted. Requires a user id; anonymous sessions have no channel.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ListenCmd) run(ctx context.Context, c *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}

	if app.Session.Anonymous() {
		return errors.New("listen requires a user id (set session.user_id or --user-id)")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := app.NewConsumer()
	if err != nil {
		return err
	}

	p := newPrinter(c.Root().ErrWriter)
	consumer.Subscribe(func(s push.ChannelState) {
		switch s.State {
		case push.StateOpen:
			p.Successf("push channel open")
		case push.StateReconnecting:
			p.Warnf("push channel lost, reconnecting (attempt %d)", s.Attempt)
		case push.StateClosed:
			p.Infof("push channel closed")
			stop()
		}
	})
	app.Queue.Subscribe(sinks.NewConsole(c.Root().Writer).Present)

	consumer.Start(ctx)
	<-ctx.Done()

	log.Debug().Msg("listen finished")
	return nil
}
