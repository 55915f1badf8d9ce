package questmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating quest tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS routes (
					id BIGSERIAL PRIMARY KEY,
					code VARCHAR(1) NOT NULL UNIQUE,
					name VARCHAR(100) NOT NULL,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS checkpoints (
					id BIGSERIAL PRIMARY KEY,
					route_id BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
					order_num INTEGER NOT NULL CHECK (order_num >= 1),
					title VARCHAR(200) NOT NULL,
					riddle TEXT NOT NULL,
					photo_hint TEXT,
					CONSTRAINT uq_checkpoint_route_order UNIQUE (route_id, order_num)
				);
			`); err != nil {
				return fmt.Errorf("failed to create route tables: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS teams (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(120) NOT NULL UNIQUE,
					description TEXT,
					is_locked BOOLEAN NOT NULL DEFAULT FALSE,
					route_id BIGINT REFERENCES routes(id),
					current_order_num INTEGER NOT NULL DEFAULT 1,
					can_rename BOOLEAN NOT NULL DEFAULT TRUE,
					started_at TIMESTAMPTZ,
					finished_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_teams_route_id ON teams(route_id);

				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					tg_id BIGINT UNIQUE,
					phone VARCHAR(32) UNIQUE,
					first_name VARCHAR(100) NOT NULL DEFAULT '',
					last_name VARCHAR(100),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS team_members (
					id BIGSERIAL PRIMARY KEY,
					team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(16) NOT NULL CHECK (role IN ('PLAYER', 'CAPTAIN')),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_team_member UNIQUE (team_id, user_id),
					CONSTRAINT uq_team_member_user UNIQUE (user_id)
				);
				CREATE INDEX IF NOT EXISTS idx_team_members_team_id ON team_members(team_id);
			`); err != nil {
				return fmt.Errorf("failed to create team tables: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS proofs (
					id BIGSERIAL PRIMARY KEY,
					team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					route_id BIGINT NOT NULL REFERENCES routes(id),
					checkpoint_id BIGINT NOT NULL REFERENCES checkpoints(id),
					photo_file_id TEXT NOT NULL,
					status VARCHAR(16) NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
					submitted_by_user_id BIGINT NOT NULL REFERENCES users(id),
					judged_by BIGINT,
					judged_at TIMESTAMPTZ,
					comment TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ,
					CONSTRAINT uq_proof_team_checkpoint UNIQUE (team_id, checkpoint_id)
				);
				CREATE INDEX IF NOT EXISTS idx_proofs_pending ON proofs(created_at) WHERE status = 'PENDING';

				CREATE TABLE IF NOT EXISTS submissions (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					team_id BIGINT REFERENCES teams(id),
					kind VARCHAR(16) NOT NULL CHECK (kind IN ('article', 'photo')),
					url TEXT,
					canonical_url TEXT,
					tg_file_id TEXT,
					caption TEXT,
					status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
					reject_reason TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					reviewed_at TIMESTAMPTZ,
					reviewed_by_tg BIGINT
				);
				CREATE INDEX IF NOT EXISTS idx_submissions_canonical_url ON submissions(canonical_url);
				CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
			`); err != nil {
				return fmt.Errorf("failed to create proof tables: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping quest tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS submissions;
				DROP TABLE IF EXISTS proofs;
				DROP TABLE IF EXISTS team_members;
				DROP TABLE IF EXISTS users;
				DROP TABLE IF EXISTS teams;
				DROP TABLE IF EXISTS checkpoints;
				DROP TABLE IF EXISTS routes;
			`); err != nil {
				return fmt.Errorf("failed to drop quest tables: %w", err)
			}
			return nil
		})
	})
}
