package testutils

import (
	"context"
	"io"
	"testing"

	"github.com/Black-And-White-Club/quest-bot/app"
	questmigrations "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/Black-And-White-Club/quest-bot/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// TestEnvironment holds a migrated Postgres and the config modules are built with.
type TestEnvironment struct {
	Ctx           context.Context
	PgContainer   *postgres.PostgresContainer
	DB            *bun.DB
	Config        *config.Config
	Observability *observability.Observability
}

// NewTestEnvironment starts Postgres and runs the quest migrations. The test
// is skipped under -short or when no container runtime is reachable.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	ctx := context.Background()
	pg, connStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	db := app.NewDB(connStr)
	migrator := migrate.NewMigrator(db, questmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("failed to init migrations: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	cfg := config.Default()
	cfg.Postgres.DSN = connStr
	cfg.Game.TeamSize = 2
	cfg.Game.ProofsDir = t.TempDir()

	obs, err := observability.Init(observability.Config{Environment: "development", Output: io.Discard})
	if err != nil {
		t.Fatalf("failed to init observability: %v", err)
	}

	env := &TestEnvironment{Ctx: ctx, PgContainer: pg, DB: db, Config: &cfg, Observability: obs}
	t.Cleanup(func() {
		db.Close()
		pg.Terminate(context.Background())
	})
	return env
}

// TruncateAll empties every quest table and resets identities.
func (env *TestEnvironment) TruncateAll(t *testing.T) {
	t.Helper()
	_, err := env.DB.ExecContext(env.Ctx, `TRUNCATE submissions, proofs, team_members, users, teams, checkpoints, routes RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
