package questdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

func (r *Impl) GetUserByID(ctx context.Context, db bun.IDB, id int64) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	if err := scanOne(ctx, db.NewSelect().Model(user).Where("u.id = ?", id), "user"); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Impl) GetUserByTgID(ctx context.Context, db bun.IDB, tgID int64) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	if err := scanOne(ctx, db.NewSelect().Model(user).Where("u.tg_id = ?", tgID), "user by tg_id"); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Impl) GetUserByPhone(ctx context.Context, db bun.IDB, phone string) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	if err := scanOne(ctx, db.NewSelect().Model(user).Where("u.phone = ?", phone), "user by phone"); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a user. It returns ErrDuplicate when tg_id or phone is taken.
func (r *Impl) CreateUser(ctx context.Context, db bun.IDB, user *User) error {
	db = r.resolveDB(db)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := db.NewInsert().
		Model(user).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return insertResult(res, err, "user")
}

// UpdateUser writes the mutable identity fields of a user.
func (r *Impl) UpdateUser(ctx context.Context, db bun.IDB, user *User) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(user).
		Column("tg_id", "phone", "first_name", "last_name", "is_active").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
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

// ListUsers pages through users by ascending id.
func (r *Impl) ListUsers(ctx context.Context, db bun.IDB, limit, offset int) ([]User, error) {
	db = r.resolveDB(db)
	var users []User
	q := db.NewSelect().Model(&users).OrderExpr("u.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
