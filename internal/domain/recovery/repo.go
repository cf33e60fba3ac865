package recovery

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type ProfileRepository interface {
	Create(ctx context.Context, p *RecoveryProfile) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*RecoveryProfile, error)
}

type DailyLogRepository interface {
	Create(ctx context.Context, l *DailyLog) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DailyLog, int, error)
	// Recent returns up to count logs ordered by date then submission time,
	// most recent first.
	Recent(ctx context.Context, patientID uuid.UUID, count int) ([]*DailyLog, error)
}

type RiskScoreRepository interface {
	Create(ctx context.Context, r *RiskScore) error
	Latest(ctx context.Context, patientID uuid.UUID) (*RiskScore, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskScore, int, error)
}
