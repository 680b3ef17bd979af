// internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/rovshanmuradov/solana-counter/internal/export"
	"github.com/rovshanmuradov/solana-counter/internal/storage/models"
)

// Storage определяет интерфейс истории отправок
type Storage interface {
	SaveSubmission(ctx context.Context, s *models.Submission) error
	// GetSubmission returns the latest run that produced signature.
	GetSubmission(ctx context.Context, signature string) (*models.Submission, error)
	// ListSubmissions returns newest first; an empty payer lists every payer.
	ListSubmissions(ctx context.Context, payer string, limit, offset int) ([]*models.Submission, error)

	RunMigrations() error
	Close() error
}

// FromRecord converts a report record into a history row.
func FromRecord(payer string, rec export.Record) *models.Submission {
	return &models.Submission{
		Signature:     rec.Signature,
		Payer:         payer,
		Operation:     rec.Operation,
		Label:         rec.Label,
		Outcome:       rec.Outcome,
		Slot:          rec.Slot,
		Count:         rec.Count,
		UnitsConsumed: rec.UnitsConsumed,
		Code:          rec.Code,
		Message:       rec.Message,
		StartedAt:     rec.Started,
		DurationMS:    rec.Duration.Milliseconds(),
	}
}

// ToRecord converts a history row back for export.
func ToRecord(s *models.Submission) export.Record {
	return export.Record{
		Label:         s.Label,
		Operation:     s.Operation,
		Signature:     s.Signature,
		Outcome:       s.Outcome,
		Slot:          s.Slot,
		Count:         s.Count,
		UnitsConsumed: s.UnitsConsumed,
		Code:          s.Code,
		Message:       s.Message,
		Started:       s.StartedAt,
		Duration:      time.Duration(s.DurationMS) * time.Millisecond,
	}
}
