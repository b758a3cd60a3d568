package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductRevision records what was sent to the shop API on each successful save.
// Target is "main" for a single product update and "related" for a batch.
type ProductRevision struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID       string     `gorm:"type:varchar(64);index;not null"`
	UserID          *uuid.UUID `gorm:"type:uuid"`
	Target          string     `gorm:"type:varchar(10);not null"`
	RelatedCount    int        `gorm:"not null;default:0"`
	Description     string     `gorm:"type:text"`
	MetaTitle       string
	MetaDescription string
	Keywords        string
	CreatedAt       time.Time
}

func (ProductRevision) TableName() string { return "product_revisions" }
