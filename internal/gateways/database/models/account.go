package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID              string     `bun:"id,pk"`
	Status          string     `bun:"status,notnull,default:'expired'"`
	SubscriptionEnd *time.Time `bun:"subscription_end,type:timestamptz"`
	DisplayName     string     `bun:"display_name,notnull,default:''"`
	Username        string     `bun:"username,notnull,default:''"`
	CreatedAt       time.Time  `bun:"created_at,type:timestamptz,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,type:timestamptz,notnull,default:current_timestamp"`
}
