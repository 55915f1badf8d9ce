package questdb

import (
	"context"
	"fmt"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/uptrace/bun"
)

func (r *Impl) GetProofByID(ctx context.Context, db bun.IDB, id int64) (*Proof, error) {
	db = r.resolveDB(db)
	proof := new(Proof)
	if err := scanOne(ctx, db.NewSelect().Model(proof).Where("p.id = ?", id), "proof"); err != nil {
		return nil, err
	}
	return proof, nil
}

func (r *Impl) GetProofByTeamCheckpoint(ctx context.Context, db bun.IDB, teamID, checkpointID int64) (*Proof, error) {
	db = r.resolveDB(db)
	proof := new(Proof)
	q := db.NewSelect().
		Model(proof).
		Where("p.team_id = ?", teamID).
		Where("p.checkpoint_id = ?", checkpointID)
	if err := scanOne(ctx, q, "proof by team checkpoint"); err != nil {
		return nil, err
	}
	return proof, nil
}

// CreateProof inserts a proof. It returns ErrDuplicate when the team already
// has a proof for the checkpoint.
func (r *Impl) CreateProof(ctx context.Context, db bun.IDB, proof *Proof) error {
	db = r.resolveDB(db)
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = time.Now().UTC()
	}
	res, err := db.NewInsert().
		Model(proof).
		On("CONFLICT (team_id, checkpoint_id) DO NOTHING").
		Exec(ctx)
	return insertResult(res, err, "proof")
}

func (r *Impl) ReopenProof(ctx context.Context, db bun.IDB, proof *Proof) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(proof).
		Column("photo_file_id", "submitted_by_user_id", "status", "judged_by", "judged_at", "comment", "updated_at").
		WherePK().
		Where("p.status = ?", questdomain.ProofRejected).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reopen proof: %w", err)
	}
	return affected(res)
}

func (r *Impl) JudgeProof(ctx context.Context, db bun.IDB, j Judgement) (bool, error) {
	db = r.resolveDB(db)
	status := questdomain.ProofRejected
	if j.Approve {
		status = questdomain.ProofApproved
	}
	res, err := db.NewUpdate().
		Model((*Proof)(nil)).
		Set("status = ?", status).
		Set("judged_by = ?", j.JudgedBy).
		Set("judged_at = ?", j.At).
		Set("comment = ?", j.Comment).
		Set("updated_at = ?", j.At).
		Where("id = ?", j.ID).
		Where("status = ?", questdomain.ProofPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to judge proof: %w", err)
	}
	return affected(res)
}

func (r *Impl) CountApprovedProofs(ctx context.Context, db bun.IDB, teamID, routeID int64) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Proof)(nil)).
		Where("team_id = ?", teamID).
		Where("route_id = ?", routeID).
		Where("status = ?", questdomain.ProofApproved).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count approved proofs: %w", err)
	}
	return n, nil
}

// ListPendingProofs returns every PENDING proof, oldest first.
func (r *Impl) ListPendingProofs(ctx context.Context, db bun.IDB) ([]PendingProofRow, error) {
	db = r.resolveDB(db)
	var rows []PendingProofRow
	err := db.NewSelect().
		TableExpr("proofs AS p").
		ColumnExpr("p.id, p.team_id, t.name AS team_name, r.code AS route_code").
		ColumnExpr("p.checkpoint_id, c.order_num, c.title AS checkpoint_title, p.photo_file_id").
		ColumnExpr("p.submitted_by_user_id, u.tg_id AS submitted_by_tg_id, COALESCE(u.first_name, '') AS submitted_by_name").
		ColumnExpr("p.created_at, p.updated_at").
		Join("JOIN teams AS t ON t.id = p.team_id").
		Join("JOIN checkpoints AS c ON c.id = p.checkpoint_id").
		Join("JOIN routes AS r ON r.id = p.route_id").
		Join("LEFT JOIN users AS u ON u.id = p.submitted_by_user_id").
		Where("p.status = ?", questdomain.ProofPending).
		OrderExpr("p.created_at ASC, p.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending proofs: %w", err)
	}
	return rows, nil
}
