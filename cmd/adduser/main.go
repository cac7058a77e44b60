// cmd/adduser/main.go
// Creates or updates a user in the database. This is the only way to grant
// roles outside the API, so it is used to bootstrap the first superadmin.
//
// Usage:
//
//	go run ./cmd/adduser -username padraic -email padraic@example.com -password testing1 -superadmin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/padraicbc/demoapi/config"
	bundb "github.com/padraicbc/demoapi/db"
	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/password"
)

func main() {
	username := flag.String("username", "", "username (required)")
	email := flag.String("email", "", "email (required)")
	plain := flag.String("password", "", "plain-text password (required)")
	admin := flag.Bool("admin", false, "grant admin")
	superadmin := flag.Bool("superadmin", false, "grant superadmin")
	flag.Parse()

	if *username == "" || *email == "" || *plain == "" {
		log.Fatal("-username, -email and -password are required")
	}

	hash, err := password.Hash(*plain)
	if err != nil {
		log.Fatal("argon2:", err)
	}

	ctx := context.Background()
	cfg := config.Load()
	db, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatal("create tables:", err)
	}

	user := &models.User{
		Username:   *username,
		Email:      *email,
		Password:   hash,
		Admin:      *admin,
		Superadmin: *superadmin,
	}

	_, err = db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("password = EXCLUDED.password").
		Set("admin = EXCLUDED.admin").
		Set("superadmin = EXCLUDED.superadmin").
		Exec(ctx)
	if err != nil {
		log.Fatal("insert user:", err)
	}

	fmt.Printf("user %q saved\n", *username)
}
