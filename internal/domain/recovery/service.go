package recovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recoverlink/recoverlink/internal/platform/cache"
	"github.com/recoverlink/recoverlink/internal/platform/db"
)

// patientLocks hands out one mutex per patient so that concurrent
// submissions for the same patient serialize their read-compute-write
// sequence. Different patients never contend.
type patientLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newPatientLocks() *patientLocks {
	return &patientLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (p *patientLocks) forPatient(id uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	return l
}

type Service struct {
	profiles ProfileRepository
	logs     DailyLogRepository
	risks    RiskScoreRepository
	cache    *cache.Client
	locks    *patientLocks
	runTx    func(ctx context.Context, fn func(ctx context.Context) error) error
	now      func() time.Time
}

// NewService wires the engine to its persistence boundary. pool may be nil
// in tests, in which case writes run without a surrounding transaction.
// cacheClient may be nil, which disables the latest-risk cache.
func NewService(profiles ProfileRepository, logs DailyLogRepository, risks RiskScoreRepository,
	pool *pgxpool.Pool, cacheClient *cache.Client) *Service {
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	if pool != nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	}
	return &Service{
		profiles: profiles,
		logs:     logs,
		risks:    risks,
		cache:    cacheClient,
		locks:    newPatientLocks(),
		runTx:    runTx,
		now:      time.Now,
	}
}

// Evaluate runs the full assessment pipeline for one submitted daily log:
// normalize, resolve stage, detect trend, classify, persist. The daily log
// and its risk score commit together; on failure nothing is visible. The
// read-compute-write sequence holds the patient's lock so a concurrent
// resubmission cannot interleave with the trend window read.
func (s *Service) Evaluate(ctx context.Context, patientID uuid.UUID, raw LogSubmission) (*EvaluateResult, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	now := s.now()
	log, err := NormalizeLog(raw, now)
	if err != nil {
		return nil, err
	}
	log.PatientID = patientID

	mu := s.locks.forPatient(patientID)
	mu.Lock()
	defer mu.Unlock()

	profile, err := s.profiles.GetByPatient(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading recovery profile: %w", err)
	}

	// Missing profile is not fatal: classification proceeds on absolute and
	// trend rules with deviation detection disabled.
	stage := ResolveStage(profile, now)

	// The trend window is the three most recent logs by date, counting the
	// one being submitted. A backdated submission sorts into place; if it
	// falls behind three newer entries it drops out of the window entirely.
	prior, err := s.logs.Recent(ctx, patientID, trendWindow)
	if err != nil {
		return nil, fmt.Errorf("loading recent logs: %w", err)
	}
	window := make([]DailyLog, 0, trendWindow+1)
	window = append(window, log)
	for _, p := range prior {
		window = append(window, *p)
	}
	// Stable sort on date only: the new log stays ahead of stored entries
	// for the same date, and stored entries keep their created_at order.
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Date.After(window[j].Date)
	})
	if len(window) > trendWindow {
		window = window[:trendWindow]
	}
	trend := IncreasingTrend(window)

	cls := Classify(log, stage, trend)
	ci := ComplicationIndex(log, cls.DeviationFlag)
	log.RiskStatus = cls.Status

	risk := &RiskScore{
		PatientID:         patientID,
		Score:             cls.Score,
		Status:            cls.Status,
		DeviationFlag:     cls.DeviationFlag,
		ComplicationIndex: ci,
		ComputedAt:        now,
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.logs.Create(ctx, &log); err != nil {
			return fmt.Errorf("persisting daily log: %w", err)
		}
		risk.LogID = log.ID
		if err := s.risks.Create(ctx, risk); err != nil {
			return fmt.Errorf("persisting risk score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: a cache failure must not fail a committed evaluation.
	_ = s.cache.SetLatestRisk(ctx, patientID.String(), risk)

	return &EvaluateResult{
		LogID:             log.ID,
		RiskStatus:        cls.Status,
		RiskScore:         cls.Score,
		DeviationFlag:     cls.DeviationFlag,
		ComplicationIndex: ci,
	}, nil
}

// GetGuidance returns the stage-based guidance for a patient. A missing
// profile yields a degraded record rather than an error.
func (s *Service) GetGuidance(ctx context.Context, patientID uuid.UUID) (*Guidance, error) {
	profile, err := s.profiles.GetByPatient(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading recovery profile: %w", err)
	}
	stage := ResolveStage(profile, s.now())

	latest, err := s.LatestRisk(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading latest risk: %w", err)
	}

	g := BuildGuidance(stage, latest)
	return &g, nil
}

func (s *Service) CreateProfile(ctx context.Context, p *RecoveryProfile) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	if p.ExpectedDurationDays <= 0 {
		return fmt.Errorf("expected_duration_days must be positive")
	}
	if p.AcceptablePainWeek1 < 0 || p.AcceptablePainWeek1 > 10 {
		return fmt.Errorf("acceptable_pain_week_1 must be between 0 and 10")
	}
	if p.AcceptablePainWeek3 < 0 || p.AcceptablePainWeek3 > 10 {
		return fmt.Errorf("acceptable_pain_week_3 must be between 0 and 10")
	}
	return s.profiles.Create(ctx, p)
}

func (s *Service) GetProfile(ctx context.Context, patientID uuid.UUID) (*RecoveryProfile, error) {
	return s.profiles.GetByPatient(ctx, patientID)
}

func (s *Service) ListLogs(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*DailyLog, int, error) {
	return s.logs.ListByPatient(ctx, patientID, limit, offset)
}

// LatestRisk returns a patient's most recent risk score, trying the cache
// before the store.
func (s *Service) LatestRisk(ctx context.Context, patientID uuid.UUID) (*RiskScore, error) {
	var cached RiskScore
	if ok, err := s.cache.GetLatestRisk(ctx, patientID.String(), &cached); err == nil && ok {
		return &cached, nil
	}

	latest, err := s.risks.Latest(ctx, patientID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetLatestRisk(ctx, patientID.String(), latest)
	return latest, nil
}

func (s *Service) ListRiskScores(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RiskScore, int, error) {
	return s.risks.ListByPatient(ctx, patientID, limit, offset)
}
