package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/storefront/internal/core/mutation"
	"github.com/colonyops/storefront/internal/core/sinks"
	"github.com/colonyops/storefront/pkg/iojson"
)

// CartLine is one entry of a --file cart batch.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartCmd struct {
	flags *Flags
	fr    *iojson.FileReader[[]CartLine]

	// flags
	quantity   int
	jsonOutput bool
}

// NewCartCmd creates a new cart command
func NewCartCmd(flags *Flags) *CartCmd {
	return &CartCmd{
		flags: flags,
		fr:    &iojson.FileReader[[]CartLine]{},
	}
}

// Register adds the cart command to the application
func (cmd *CartCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cart",
		Usage: "Cart operations",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a product to the cart",
				UsageText: "storefront cart add <product-id> [--quantity N]\n   storefront cart add --file cart.json",
				Description: `Adds a product to the cart and prints the updated cart count.

With --file (or piped stdin and no product id), reads a JSON array of
{"product_id": "...", "quantity": N} lines and adds each in order.`,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "quantity",
						Aliases:     []string{"q"},
						Usage:       "number of units to add",
						Value:       1,
						Destination: &cmd.quantity,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output outcomes as JSON lines",
						Destination: &cmd.jsonOutput,
					},
					cmd.fr.Flag(),
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// outcomeJSON is the JSON output format for mutation outcomes.
type outcomeJSON struct {
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	CartCount int    `json:"cart_count,omitempty"`
	Message   string `json:"message,omitempty"`
}

func toOutcomeJSON(out mutation.Outcome) outcomeJSON {
	return outcomeJSON{
		Action:    string(out.Action),
		Outcome:   out.Kind.String(),
		CartCount: out.CartCount,
		Message:   out.Message,
	}
}

func (cmd *CartCmd) lines(c *cli.Command) ([]CartLine, error) {
	if id := c.Args().First(); id != "" {
		if cmd.fr.Provided() {
			return nil, errors.New("pass either a product id or --file, not both")
		}
		return []CartLine{{ProductID: id, Quantity: cmd.quantity}}, nil
	}

	lines, err := cmd.fr.Read()
	if err != nil {
		if errors.Is(err, iojson.ErrNoInput) {
			return nil, errors.New("product id is required")
		}
		return nil, fmt.Errorf("read cart lines: %w", err)
	}
	return lines, nil
}

func (cmd *CartCmd) run(ctx context.Context, c *cli.Command) error {
	app, err := cmd.flags.app()
	if err != nil {
		return err
	}

	lines, err := cmd.lines(c)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	console := sinks.NewConsole(out)

	reg := sinks.Registry{}
	if !cmd.jsonOutput {
		reg.Badge = console
		reg.Pulse = console
		app.Queue.Subscribe(console.Present)
	}

	app.Prime(ctx)
	dispatcher := app.NewDispatcher(reg)

	failed := 0
	for _, line := range lines {
		outcome := dispatcher.DispatchCart(ctx, mutation.CartIntent{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
		if !outcome.Succeeded() {
			failed++
		}
		if cmd.jsonOutput {
			if err := iojson.WriteLine(out, toOutcomeJSON(outcome)); err != nil {
				return fmt.Errorf("encode outcome: %w", err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d cart addition(s) failed", failed, len(lines))
	}
	return nil
}
