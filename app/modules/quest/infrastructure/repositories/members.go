package questdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

func (r *Impl) GetMembershipByUser(ctx context.Context, db bun.IDB, userID int64) (*TeamMember, error) {
	db = r.resolveDB(db)
	member := new(TeamMember)
	if err := scanOne(ctx, db.NewSelect().Model(member).Where("tm.user_id = ?", userID), "membership"); err != nil {
		return nil, err
	}
	return member, nil
}

func (r *Impl) ListMembers(ctx context.Context, db bun.IDB, teamID int64) ([]MemberRow, error) {
	db = r.resolveDB(db)
	var rows []MemberRow
	err := db.NewSelect().
		TableExpr("team_members AS tm").
		ColumnExpr("tm.id AS member_id, tm.team_id, tm.user_id, tm.role, tm.created_at AS joined_at").
		ColumnExpr("u.tg_id, u.first_name, u.last_name, u.phone").
		Join("JOIN users AS u ON u.id = tm.user_id").
		Where("tm.team_id = ?", teamID).
		OrderExpr("tm.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return rows, nil
}

func (r *Impl) CountMembers(ctx context.Context, db bun.IDB, teamID int64) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*TeamMember)(nil)).
		Where("team_id = ?", teamID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// AddMember inserts a membership. It returns ErrDuplicate when the user is
// already on a team.
func (r *Impl) AddMember(ctx context.Context, db bun.IDB, member *TeamMember) error {
	db = r.resolveDB(db)
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}
	res, err := db.NewInsert().
		Model(member).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return insertResult(res, err, "member")
}

// UpdateMember writes the team and role of a membership.
func (r *Impl) UpdateMember(ctx context.Context, db bun.IDB, member *TeamMember) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(member).
		Column("team_id", "role").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
