package store

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"github.com/padraicbc/demoapi/models"
)

// UserFilter narrows and pages a user listing.
type UserFilter struct {
	UsernameContains string
	Page             int
	PageSize         int
}

// UserStore executes queries against the user table.
type UserStore struct {
	db *bun.DB
}

// NewUserStore returns a UserStore backed by db.
func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts u and sets its ID.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(u).Returning("id").Exec(ctx)
		return err
	})
}

// Exists reports whether any row has the given username or the given email.
func (s *UserStore) Exists(ctx context.Context, username, email string) (bool, error) {
	return s.db.NewSelect().Model((*models.User)(nil)).
		Where("u.username = ?", username).
		WhereOr("u.email = ?", email).
		Exists(ctx)
}

// FindByIdentifier returns every row whose username or email equals value.
func (s *UserStore) FindByIdentifier(ctx context.Context, value string) ([]models.User, error) {
	var users []models.User
	err := s.db.NewSelect().Model(&users).
		Where("u.username = ?", value).
		WhereOr("u.email = ?", value).
		OrderExpr("u.id ASC").
		Scan(ctx)
	return users, err
}

// ByID returns the row with the given id or sql.ErrNoRows.
func (s *UserStore) ByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	if err := s.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns users ordered by id. Paging applies only when both Page and
// PageSize are positive.
func (s *UserStore) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	users := []models.User{}
	q := s.db.NewSelect().Model(&users).OrderExpr("u.id ASC")

	if f.UsernameContains != "" {
		q = q.Where("u.username ILIKE ?", "%"+escapeLike(f.UsernameContains)+"%")
	}
	if f.Page > 0 && f.PageSize > 0 {
		q = q.Limit(f.PageSize).Offset((f.Page - 1) * f.PageSize)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return users, nil
}

// Update writes the listed columns of u to the row with the given id and
// returns the stored row. Exactly one row must change.
func (s *UserStore) Update(ctx context.Context, id int64, u *models.User, columns []string) (*models.User, error) {
	if len(columns) == 0 {
		return s.ByID(ctx, id)
	}

	out := &models.User{}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(u).
			Column(columns...).
			Where("u.id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return &RowsAffectedError{Op: "update user", Affected: n}
		}
		return tx.NewSelect().Model(out).Where("u.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row with the given id. Exactly one row must go.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.User)(nil)).
			Where("u.id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return &RowsAffectedError{Op: "delete user", Affected: n}
		}
		return nil
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
