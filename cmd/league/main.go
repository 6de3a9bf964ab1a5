package main

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/prediction-league/internal/app"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "league",
		Usage: "prediction league operations",
		Commands: []*cli.Command{
			settleCommand(),
			syncFixturesCommand(),
			migrateCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadRuntime() (config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv, "component", "cli")
	logging.SetDefault(logger)
	return cfg, logger, nil
}

func settleCommand() *cli.Command {
	return &cli.Command{
		Name:  "settle",
		Usage: "run one settlement pass and print the result",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			application, err := app.New(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			result, err := application.Settlement.RunSettlement(c.Context)
			if printErr := printJSON(result); printErr != nil {
				return printErr
			}
			if err != nil {
				return err
			}
			if !result.Success {
				return cli.Exit(result.Message, 2)
			}
			return nil
		},
	}
}

func syncFixturesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync-fixtures",
		Usage: "refresh the fixture schedule from the results provider",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			application, err := app.New(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if application.FixtureSync == nil {
				return cli.Exit("results provider is not configured (API_FOOTBALL_KEY)", 2)
			}
			result, err := application.FixtureSync.SyncFixtures(c.Context)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func migrateCommand() *cli.Command {
	dirFlag := &cli.StringFlag{Name: "dir", Usage: "migration directory (default ./db/migrations)"}

	withMigrator := func(action func(*cli.Context, *app.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			migrator, err := app.NewMigrator(cfg, c.String("dir"), logger)
			if err != nil {
				return err
			}
			defer migrator.Close()
			return action(c, migrator)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Flags: []cli.Flag{dirFlag},
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrator(func(_ *cli.Context, m *app.Migrator) error {
					return m.Up()
				}),
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1}},
				Action: withMigrator(func(c *cli.Context, m *app.Migrator) error {
					return m.Down(c.Int("steps"))
				}),
			},
			{
				Name:  "version",
				Usage: "print the current migration version",
				Action: withMigrator(func(_ *cli.Context, m *app.Migrator) error {
					version, dirty, ok, err := m.Version()
					if err != nil {
						return err
					}
					if !ok {
						fmt.Println("version=none")
						return nil
					}
					fmt.Printf("version=%d dirty=%t\n", version, dirty)
					return nil
				}),
			},
			{
				Name:  "goto",
				Usage: "migrate up or down to a version",
				Flags: []cli.Flag{&cli.UintFlag{Name: "version", Required: true}},
				Action: withMigrator(func(c *cli.Context, m *app.Migrator) error {
					return m.Goto(c.Uint("version"))
				}),
			},
			{
				Name:  "force",
				Usage: "set the version without running migrations",
				Flags: []cli.Flag{&cli.IntFlag{Name: "version", Required: true}},
				Action: withMigrator(func(c *cli.Context, m *app.Migrator) error {
					return m.Force(c.Int("version"))
				}),
			},
		},
	}
}

func printJSON(v any) error {
	body, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}
