package questdb

import (
	"context"
	"fmt"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/uptrace/bun"
)

func (r *Impl) CreateSubmission(ctx context.Context, db bun.IDB, sub *Submission) error {
	db = r.resolveDB(db)
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(sub).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *Impl) GetSubmissionByID(ctx context.Context, db bun.IDB, id int64) (*Submission, error) {
	db = r.resolveDB(db)
	sub := new(Submission)
	q := db.NewSelect().
		Model(sub).
		Relation("User").
		Relation("Team").
		Where("s.id = ?", id)
	if err := scanOne(ctx, q, "submission"); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Impl) FindLiveArticle(ctx context.Context, db bun.IDB, canonicalURL string) (*Submission, error) {
	db = r.resolveDB(db)
	sub := new(Submission)
	q := db.NewSelect().
		Model(sub).
		Where("s.kind = ?", questdomain.KindArticle).
		Where("s.canonical_url = ?", canonicalURL).
		Where("s.status IN (?)", bun.In([]questdomain.SubmissionStatus{
			questdomain.SubmissionPending,
			questdomain.SubmissionApproved,
		})).
		OrderExpr("s.id ASC")
	if err := scanOne(ctx, q, "live article"); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Impl) JudgeSubmission(ctx context.Context, db bun.IDB, j Judgement) (bool, error) {
	db = r.resolveDB(db)
	status := questdomain.SubmissionRejected
	if j.Approve {
		status = questdomain.SubmissionApproved
	}
	res, err := db.NewUpdate().
		Model((*Submission)(nil)).
		Set("status = ?", status).
		Set("reject_reason = ?", j.Comment).
		Set("reviewed_at = ?", j.At).
		Set("reviewed_by_tg = ?", j.JudgedBy).
		Where("id = ?", j.ID).
		Where("status = ?", questdomain.SubmissionPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to judge submission: %w", err)
	}
	return affected(res)
}

// ListSubmissions returns submissions in status, oldest first, with their
// submitter and team loaded.
func (r *Impl) ListSubmissions(ctx context.Context, db bun.IDB, status questdomain.SubmissionStatus, limit int) ([]Submission, error) {
	db = r.resolveDB(db)
	var subs []Submission
	q := db.NewSelect().
		Model(&subs).
		Relation("User").
		Relation("Team").
		Where("s.status = ?", status).
		OrderExpr("s.created_at ASC, s.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
