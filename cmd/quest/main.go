package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/quest-bot/app"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest"
	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questmigrations "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "quest",
		Usage: "team scavenger-hunt backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"QUEST_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newMigrateCommand(),
			newSeedCommand(),
			newWhitelistCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, the moderation relay and the review bot",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := &app.App{}
			if err := application.Initialize(ctx, cfg); err != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				application.Close(shutdownCtx)
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			runErr := application.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := application.Close(shutdownCtx); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}
}

func newMigrateCommand() *cli.Command {
	withMigrator := func(fn func(c *cli.Context, m *migrate.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db := app.NewDB(cfg.Postgres.DSN)
			defer db.Close()
			return fn(c, migrate.NewMigrator(db, questmigrations.Migrations))
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context) //nolint:errcheck

					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No new migrations to run")
						return nil
					}
					fmt.Printf("Migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context) //nolint:errcheck

					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No groups to roll back")
						return nil
					}
					fmt.Printf("Rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("Applied: %s\n", ms.Applied())
					fmt.Printf("Unapplied: %s\n", ms.Unapplied())
					return nil
				}),
			},
		},
	}
}

// routeFile is the layout of the seed file passed to `seed routes`.
type routeFile struct {
	Routes []questservice.RouteSeed `yaml:"routes"`
}

func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load reference data",
		Subcommands: []*cli.Command{
			{
				Name:      "routes",
				Usage:     "upsert routes and checkpoints from a YAML file",
				ArgsUsage: "<file.yaml>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return cli.Exit("seed routes: file argument is required", 2)
					}
					routes, err := readRouteFile(path)
					if err != nil {
						return err
					}

					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					obs, err := observability.Init(observability.Config{Environment: cfg.Observability.Environment})
					if err != nil {
						return err
					}
					db := app.NewDB(cfg.Postgres.DSN)
					defer db.Close()

					module, err := quest.NewModule(c.Context, cfg, obs, db, nil, nil)
					if err != nil {
						return err
					}
					res, err := module.Service().SeedRoutes(c.Context, routes)
					if err != nil {
						return err
					}
					fmt.Printf("Seeded %d routes, %d checkpoints\n", res.Routes, res.Checkpoints)
					return nil
				},
			},
		},
	}
}

func readRouteFile(path string) ([]questservice.RouteSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f routeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(f.Routes) == 0 {
		return nil, fmt.Errorf("seed file %s has no routes", path)
	}
	return f.Routes, nil
}

func newWhitelistCommand() *cli.Command {
	return &cli.Command{
		Name:  "whitelist",
		Usage: "inspect the participant whitelist",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "load the configured whitelist and print its stats",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					obs, err := observability.Init(observability.Config{Environment: cfg.Observability.Environment})
					if err != nil {
						return err
					}
					module, err := quest.NewModule(c.Context, cfg, obs, nil, nil, nil)
					if err != nil {
						return err
					}
					out, err := yaml.Marshal(module.Whitelist().Stats())
					if err != nil {
						return err
					}
					fmt.Print(string(out))
					return nil
				},
			},
		},
	}
}
