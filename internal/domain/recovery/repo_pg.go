package recovery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recoverlink/recoverlink/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Profile Repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `id, patient_id, condition_type, start_date, expected_duration_days,
	acceptable_pain_week_1, acceptable_pain_week_3, created_at, updated_at`

func (r *profileRepoPG) scanProfile(row pgx.Row) (*RecoveryProfile, error) {
	var p RecoveryProfile
	err := row.Scan(&p.ID, &p.PatientID, &p.ConditionType, &p.StartDate, &p.ExpectedDurationDays,
		&p.AcceptablePainWeek1, &p.AcceptablePainWeek3, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *profileRepoPG) Create(ctx context.Context, p *RecoveryProfile) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO recovery_profile (id, patient_id, condition_type, start_date, expected_duration_days,
			acceptable_pain_week_1, acceptable_pain_week_3)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.PatientID, p.ConditionType, p.StartDate, p.ExpectedDurationDays,
		p.AcceptablePainWeek1, p.AcceptablePainWeek3)
	return err
}

func (r *profileRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*RecoveryProfile, error) {
	return r.scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM recovery_profile WHERE patient_id = $1`, patientID))
}

// =========== Daily Log Repository ===========

type dailyLogRepoPG struct{ pool *pgxpool.Pool }

func NewDailyLogRepoPG(pool *pgxpool.Pool) DailyLogRepository { return &dailyLogRepoPG{pool: pool} }

func (r *dailyLogRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const logCols = `id, patient_id, date, pain_level, mood_level, sleep_hours, appetite,
	swelling, body_part, note_text, risk_status, created_at`

func (r *dailyLogRepoPG) scanLog(row pgx.Row) (*DailyLog, error) {
	var l DailyLog
	err := row.Scan(&l.ID, &l.PatientID, &l.Date, &l.PainLevel, &l.MoodLevel, &l.SleepHours, &l.Appetite,
		&l.Swelling, &l.BodyPart, &l.NoteText, &l.RiskStatus, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &l, err
}

func (r *dailyLogRepoPG) Create(ctx context.Context, l *DailyLog) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO daily_log (id, patient_id, date, pain_level, mood_level, sleep_hours, appetite,
			swelling, body_part, note_text, risk_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		l.ID, l.PatientID, l.Date, l.PainLevel, l.MoodLevel, l.SleepHours, l.Appetite,
		l.Swelling, l.BodyPart, l.NoteText, l.RiskStatus)
	return err
}

func (r *dailyLogRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DailyLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM daily_log WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM daily_log WHERE patient_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DailyLog
	for rows.Next() {
		l, err := r.scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, nil
}

func (r *dailyLogRepoPG) Recent(ctx context.Context, patientID uuid.UUID, count int) ([]*DailyLog, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+logCols+` FROM daily_log WHERE patient_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2`,
		patientID, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DailyLog
	for rows.Next() {
		l, err := r.scanLog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, nil
}

// =========== Risk Score Repository ===========

type riskScoreRepoPG struct{ pool *pgxpool.Pool }

func NewRiskScoreRepoPG(pool *pgxpool.Pool) RiskScoreRepository { return &riskScoreRepoPG{pool: pool} }

func (r *riskScoreRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const riskCols = `id, patient_id, log_id, score, status, deviation_flag, complication_index, computed_at`

func (r *riskScoreRepoPG) scanRisk(row pgx.Row) (*RiskScore, error) {
	var s RiskScore
	err := row.Scan(&s.ID, &s.PatientID, &s.LogID, &s.Score, &s.Status, &s.DeviationFlag, &s.ComplicationIndex, &s.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *riskScoreRepoPG) Create(ctx context.Context, s *RiskScore) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO risk_score (id, patient_id, log_id, score, status, deviation_flag, complication_index, computed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.PatientID, s.LogID, s.Score, s.Status, s.DeviationFlag, s.ComplicationIndex, s.ComputedAt)
	return err
}

func (r *riskScoreRepoPG) Latest(ctx context.Context, patientID uuid.UUID) (*RiskScore, error) {
	return r.scanRisk(r.conn(ctx).QueryRow(ctx,
		`SELECT `+riskCols+` FROM risk_score WHERE patient_id = $1 ORDER BY computed_at DESC LIMIT 1`, patientID))
}

func (r *riskScoreRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskScore, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM risk_score WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+riskCols+` FROM risk_score WHERE patient_id = $1 ORDER BY computed_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*RiskScore
	for rows.Next() {
		s, err := r.scanRisk(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}
