package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/storefront/internal/commands"
	"github.com/colonyops/storefront/internal/core/config"
	"github.com/colonyops/storefront/internal/core/logging"
	"github.com/colonyops/storefront/internal/core/styles"
	"github.com/colonyops/storefront/internal/storefront"
	"github.com/colonyops/storefront/internal/tui"
	"github.com/colonyops/storefront/pkg/debugserver"
	"github.com/colonyops/storefront/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func buildInfo() tui.BuildInfo {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	return tui.BuildInfo{Version: v, Commit: c, Date: d}
}

func build(info tui.BuildInfo) string {
	short := info.Commit
	if len(short) > 7 {
		short = short[:7]
	}

	return fmt.Sprintf("%s (%s) %s", info.Version, short, info.Date)
}

func main() {
	ctx := context.Background()

	// .env only seeds STOREFRONT_* variables for flag sources; it is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: load .env: %v\n", err)
	}

	var (
		logCloser   func()
		debugServer *debugserver.Server
		info        = buildInfo()
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "storefront",
		Usage:     "Browse and shop a storefront from the terminal",
		UsageText: "storefront [global options] command [command options]",
		Description: `Storefront is a terminal client for a shop backend: live product search,
add to cart, newsletter sign-up and real-time push notifications.

Run 'storefront' with no arguments to open the interactive storefront.`,
		Version: build(info),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("STOREFRONT_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("STOREFRONT_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("STOREFRONT_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("STOREFRONT_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "base-url",
				Usage:       "backend base URL (overrides backend.base_url)",
				Sources:     cli.EnvVars("STOREFRONT_BASE_URL"),
				Destination: &flags.BaseURL,
			},
			&cli.StringFlag{
				Name:        "user-id",
				Usage:       "session user id; enables push notifications (overrides session.user_id)",
				Sources:     cli.EnvVars("STOREFRONT_USER_ID"),
				Destination: &flags.UserID,
			},
			&cli.StringFlag{
				Name:        "debug-addr",
				Usage:       "serve pprof and /metrics on this address (e.g. 127.0.0.1:6060)",
				Sources:     cli.EnvVars("STOREFRONT_DEBUG_ADDR"),
				Destination: &flags.DebugAddr,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile, logging.ContextHook{})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err == nil {
				flags.ApplyOverrides(cfg)
				err = cfg.Validate()
			}
			if err != nil {
				// Kept for commands that report on configuration; the rest
				// return it when they ask for the App.
				log.Error().Err(err).Msg("failed to load config")
				flags.ConfigErr = fmt.Errorf("load config: %w", err)
				return ctx, nil
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.TUI.Theme)
			styles.SetTheme(palette)

			sfApp, err := storefront.New(cfg)
			if err != nil {
				return ctx, fmt.Errorf("create storefront: %w", err)
			}
			flags.App = sfApp

			if flags.DebugAddr != "" {
				debugServer = debugserver.New(flags.DebugAddr, nil)
				if err := debugServer.Start(ctx); err != nil {
					return ctx, fmt.Errorf("start debug server: %w", err)
				}
				log.Info().
					Str("url", fmt.Sprintf("http://%s/debug/pprof/", debugServer.Addr())).
					Msg("debug endpoint available")
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			var errs []error

			if debugServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := debugServer.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("failed to shutdown debug server")
				}
				cancel()
			}

			if flags.App != nil {
				if err := flags.App.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close storefront")
					errs = append(errs, err)
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return errors.Join(errs...)
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, info)

	app = commands.NewSearchCmd(flags).Register(app)
	app = commands.NewCartCmd(flags).Register(app)
	app = commands.NewSubscribeCmd(flags).Register(app)
	app = commands.NewListenCmd(flags).Register(app)
	app = commands.NewNotificationsCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'storefront --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		var exitErr cli.ExitCoder
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			fmt.Println()
			fmt.Println(runErr.Error())
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}
