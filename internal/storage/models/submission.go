// internal/storage/models/submission.go
package models

import "time"

// Submission is one finished pipeline run.
type Submission struct {
	BaseModel
	// Signature is empty for runs that never produced a signed transaction,
	// so it is indexed but not unique.
	Signature     string `gorm:"index;type:varchar(88)"`
	Payer         string `gorm:"index;not null;type:varchar(44)"`
	Operation     string `gorm:"index;not null;type:varchar(32)"`
	Label         string `gorm:"type:varchar(100)"`
	Outcome       string `gorm:"index;not null;type:varchar(32)"`
	Slot          uint64
	Count         *int64
	UnitsConsumed uint64
	Code          int
	Message       string    `gorm:"type:text"`
	StartedAt     time.Time `gorm:"not null"`
	DurationMS    int64
}
