package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IngestionLedgerEntry records one attempt to ingest a source image, keyed by
// the SHA-256 hash of the image bytes. At most one successful entry exists per
// hash; re-attempting a known hash overwrites the ledger row.
type IngestionLedgerEntry struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FilePath     string    `gorm:"column:file_path;not null" json:"file_path"`
	ContentHash  string    `gorm:"column:content_hash;uniqueIndex;not null" json:"content_hash"`
	ProcessedAt  time.Time `gorm:"column:processed_at;not null" json:"processed_at"`
	Success      bool      `gorm:"column:success;not null" json:"success"`
	ErrorMessage *string   `gorm:"column:error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (IngestionLedgerEntry) TableName() string { return "ingestion_ledger" }

func (e *IngestionLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
