package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentClaim struct {
	bun.BaseModel `bun:"table:payment_claims,alias:pc"`

	ID          int64      `bun:"id,pk,autoincrement"`
	AccountID   string     `bun:"account_id,notnull"`
	EvidenceRef string     `bun:"evidence_ref,notnull"`
	Status      string     `bun:"status,notnull"`
	CreatedAt   time.Time  `bun:"created_at,type:timestamptz,notnull,default:current_timestamp"`
	ReviewerID  string     `bun:"reviewer_id,notnull,default:''"`
	ReviewedAt  *time.Time `bun:"reviewed_at,type:timestamptz"`
	Note        string     `bun:"note,notnull,default:''"`
}
