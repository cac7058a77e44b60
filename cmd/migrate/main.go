// cmd/migrate/main.go
// Copies users and demos from a legacy MySQL database into PostgreSQL.
// Rows that already exist are skipped, so the command can be re-run.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/demos?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/padraicbc/demoapi/config"
	bundb "github.com/padraicbc/demoapi/db"
	"github.com/padraicbc/demoapi/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/demos?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	// Users first so every demo finds its owner.
	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"user", func() (int, error) { return migrateUsers(ctx, myDB, pgDB) }},
		{"demo", func() (int, error) { return migrateDemos(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", s.name, err)
		}
		log.Printf("%-6s  %d rows migrated", s.name, n)
	}

	resetSequences(ctx, pgDB)
	log.Println("migration complete")
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB bun.IDB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows scans every row with scan and writes them to pgDB in batches.
func copyRows[T any](ctx context.Context, rows *sql.Rows, pgDB bun.IDB, scan func(*sql.Rows) (T, error)) (int, error) {
	defer rows.Close()

	var batch []T
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, pgDB, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, pgDB, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

func migrateUsers(ctx context.Context, myDB *sql.DB, pgDB bun.IDB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		"SELECT id, username, email, password, admin, superadmin, banned FROM `user` ORDER BY id")
	if err != nil {
		return 0, err
	}
	return copyRows(ctx, rows, pgDB, func(rows *sql.Rows) (models.User, error) {
		var u models.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Admin, &u.Superadmin, &u.Banned)
		return u, err
	})
}

func migrateDemos(ctx context.Context, myDB *sql.DB, pgDB bun.IDB) (int, error) {
	rows, err := myDB.QueryContext(ctx,
		"SELECT id, path, create_user, md5sum, created_at FROM demo ORDER BY id")
	if err != nil {
		return 0, err
	}
	return copyRows(ctx, rows, pgDB, func(rows *sql.Rows) (models.Demo, error) {
		var (
			d         models.Demo
			createdAt sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.Path, &d.CreateUser, &d.MD5Sum, &createdAt); err != nil {
			return d, err
		}
		if createdAt.Valid {
			d.CreatedAt = createdAt.Time
		} else {
			d.CreatedAt = time.Now()
		}
		return d, nil
	})
}

// resetSequences advances each PG sequence to MAX(id) so new inserts don't conflict.
func resetSequences(ctx context.Context, pgDB bun.IDB) {
	seqs := []struct{ seq, table string }{
		{"user_id_seq", `"user"`},
		{"demo_id_seq", "demo"},
	}
	for _, s := range seqs {
		q := fmt.Sprintf("SELECT setval('%s', COALESCE((SELECT MAX(id) FROM %s), 1))", s.seq, s.table)
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			log.Printf("reset seq %s: %v", s.seq, err)
		}
	}
	log.Println("sequences reset")
}
