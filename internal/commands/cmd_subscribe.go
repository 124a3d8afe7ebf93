package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/storefront/internal/core/mutation"
	"github.com/colonyops/storefront/internal/core/sinks"
	"github.com/colonyops/storefront/internal/core/validate"
	"github.com/colonyops/storefront/pkg/iojson"
)

type SubscribeCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
}

// NewSubscribeCmd creates a new subscribe command
func NewSubscribeCmd(flags *Flags) *SubscribeCmd {
	return &SubscribeCmd{flags: flags}
}

// Register adds the subscribe command to the application
func (cmd *SubscribeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe an email address to the newsletter",
		UsageText: "storefront subscribe [email]",
		Description: `Subscribes the given address to the store newsletter.

When no address is given and stdin is a terminal, prompts for one.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the outcome as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SubscribeCmd) run(ctx context.Context, c *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}

	email := c.Args().First()
	if email == "" {
		if !isTerminal(os.Stdin) {
			return errors.New("email address is required")
		}
		email, err = promptEmail()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	out := c.Root().Writer
	if !cmd.jsonOutput {
		app.Queue.Subscribe(sinks.NewConsole(out).Present)
	}

	app.Prime(ctx)
	outcome := app.NewDispatcher(sinks.Registry{}).DispatchNewsletter(ctx, mutation.NewsletterIntent{Email: email})

	if cmd.jsonOutput {
		if err := iojson.WriteLine(out, toOutcomeJSON(outcome)); err != nil {
			return fmt.Errorf("encode outcome: %w", err)
		}
	}

	if !outcome.Succeeded() {
		return cli.Exit("", 1)
	}
	return nil
}

func promptEmail() (string, error) {
	var email string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Placeholder("you@example.com").
				Validate(validate.Email).
				Value(&email),
		),
	).Run()
	return email, err
}
