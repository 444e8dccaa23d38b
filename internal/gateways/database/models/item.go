package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Year        int       `bun:"year,notnull,default:0"`
	Genre       string    `bun:"genre,notnull,default:''"`
	Rating      float64   `bun:"rating,notnull,default:0"`
	Description string    `bun:"description,notnull,default:''"`
	Code        string    `bun:"code,notnull,unique"`
	FileRef     string    `bun:"file_ref,notnull"`
	CreatedAt   time.Time `bun:"created_at,type:timestamptz,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp"`
}
