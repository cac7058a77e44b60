package models

import "github.com/uptrace/bun"

// User is an account. Password always holds an Argon2id hash once persisted
// and is never serialized to clients.
type User struct {
	bun.BaseModel `bun:"table:user,alias:u"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Username   string `bun:"username,notnull,unique" json:"username"`
	Email      string `bun:"email,notnull,unique" json:"email"`
	Password   string `bun:"password,notnull" json:"-"`
	Admin      bool   `bun:"admin,notnull,default:false" json:"admin"`
	Superadmin bool   `bun:"superadmin,notnull,default:false" json:"superadmin"`
	Banned     bool   `bun:"banned,notnull,default:false" json:"banned"`
}
