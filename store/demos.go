package store

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/padraicbc/demoapi/models"
)

// DemoStore executes queries against the demo table.
type DemoStore struct {
	db *bun.DB
}

// NewDemoStore returns a DemoStore backed by db.
func NewDemoStore(db *bun.DB) *DemoStore {
	return &DemoStore{db: db}
}

// MatchingHashes returns those of hashes already recorded for any user.
func (s *DemoStore) MatchingHashes(ctx context.Context, hashes []string) ([]string, error) {
	matching := []string{}
	if len(hashes) == 0 {
		return matching, nil
	}

	err := s.db.NewSelect().
		TableExpr("demo").
		ColumnExpr("DISTINCT md5sum").
		Where("md5sum IN (?)", bun.In(hashes)).
		Scan(ctx, &matching)
	if err != nil {
		return nil, err
	}
	return matching, nil
}

// InsertBatch writes all demos with one INSERT inside a transaction and
// returns the stored paths in input order.
func (s *DemoStore) InsertBatch(ctx context.Context, demos []models.Demo) ([]string, error) {
	if len(demos) == 0 {
		return []string{}, nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&demos).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(demos))
	for i, d := range demos {
		paths[i] = d.Path
	}
	return paths, nil
}

// ListByUser returns the demos uploaded by userID, oldest first.
func (s *DemoStore) ListByUser(ctx context.Context, userID int64) ([]models.Demo, error) {
	demos := []models.Demo{}
	err := s.db.NewSelect().Model(&demos).
		Where("d.create_user = ?", userID).
		OrderExpr("d.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return demos, nil
}
