package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Demo is the metadata of an uploaded replay file.
type Demo struct {
	bun.BaseModel `bun:"table:demo,alias:d"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Path       string    `bun:"path,notnull,unique" json:"path"`
	CreateUser int64     `bun:"create_user,notnull" json:"createUser"`
	MD5Sum     string    `bun:"md5sum,type:char(32),notnull" json:"md5sum"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
