package recovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Risk statuses in increasing order of urgency.
const (
	StatusStable      = "stable"
	StatusMonitor     = "monitor"
	StatusNeedsReview = "needs_review"
	StatusHighRisk    = "high_risk"
)

// Appetite values accepted on a daily log.
const (
	AppetiteGood = "good"
	AppetiteFair = "fair"
	AppetitePoor = "poor"
)

// RecoveryProfile maps to the recovery_profile table. Authored by a
// clinician; the engine only reads it.
type RecoveryProfile struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	PatientID            uuid.UUID `db:"patient_id" json:"patient_id"`
	ConditionType        string    `db:"condition_type" json:"condition_type"`
	StartDate            time.Time `db:"start_date" json:"start_date"`
	ExpectedDurationDays int       `db:"expected_duration_days" json:"expected_duration_days"`
	AcceptablePainWeek1  int       `db:"acceptable_pain_week_1" json:"acceptable_pain_week_1"`
	AcceptablePainWeek3  int       `db:"acceptable_pain_week_3" json:"acceptable_pain_week_3"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// LogSubmission is the raw daily log payload as submitted by a patient.
// Required fields are pointers so that absence is distinguishable from zero.
type LogSubmission struct {
	Date       string   `json:"date"`
	PainLevel  *int     `json:"pain_level"`
	MoodLevel  *int     `json:"mood_level"`
	SleepHours *float64 `json:"sleep_hours"`
	Appetite   string   `json:"appetite"`
	Swelling   bool     `json:"swelling"`
	BodyPart   string   `json:"body_part"`
	NoteText   string   `json:"note_text"`
}

// DailyLog maps to the daily_log table. Append-only; a resubmission for an
// existing date creates a new row.
type DailyLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Date       time.Time `db:"date" json:"date"`
	PainLevel  int       `db:"pain_level" json:"pain_level"`
	MoodLevel  int       `db:"mood_level" json:"mood_level"`
	SleepHours float64   `db:"sleep_hours" json:"sleep_hours"`
	Appetite   string    `db:"appetite" json:"appetite"`
	Swelling   bool      `db:"swelling" json:"swelling"`
	BodyPart   string    `db:"body_part" json:"body_part,omitempty"`
	NoteText   string    `db:"note_text" json:"note_text,omitempty"`
	RiskStatus string    `db:"risk_status" json:"risk_status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RiskScore maps to the risk_score table. One per submitted log, never
// recomputed.
type RiskScore struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PatientID         uuid.UUID `db:"patient_id" json:"patient_id"`
	LogID             uuid.UUID `db:"log_id" json:"log_id"`
	Score             int       `db:"score" json:"score"`
	Status            string    `db:"status" json:"status"`
	DeviationFlag     bool      `db:"deviation_flag" json:"deviation_flag"`
	ComplicationIndex int       `db:"complication_index" json:"complication_index"`
	ComputedAt        time.Time `db:"computed_at" json:"computed_at"`
}

// Stage is the resolved recovery phase for a patient on a given date.
// HasProfile is false when no recovery profile exists; in that case no pain
// bound is available and deviation detection is disabled.
type Stage struct {
	Label             string
	HasProfile        bool
	DaysSinceStart    int
	AcceptablePainMax int
	Focus             string
	Recommendations   []string
	WarningSigns      []string
}

// AcceptablePainRange renders the stage bound as the "0-N" range string
// used on the wire.
func (s Stage) AcceptablePainRange() string {
	if !s.HasProfile {
		return ""
	}
	return fmt.Sprintf("0-%d", s.AcceptablePainMax)
}

// Classification is the primary output of the risk classifier.
type Classification struct {
	Status        string
	Score         int
	DeviationFlag bool
}

// EvaluateResult is the wire response for a daily log submission.
type EvaluateResult struct {
	LogID             uuid.UUID `json:"log_id"`
	RiskStatus        string    `json:"risk_status"`
	RiskScore         int       `json:"risk_score"`
	DeviationFlag     bool      `json:"deviation_flag"`
	ComplicationIndex int       `json:"complication_index"`
}

// Guidance is the stage content merged with the patient's current risk state.
type Guidance struct {
	Stage               string   `json:"stage"`
	HasProfile          bool     `json:"has_profile"`
	DaysSinceStart      int      `json:"days_since_start"`
	Focus               string   `json:"focus"`
	Recommendations     []string `json:"recommendations"`
	AcceptablePainRange string   `json:"acceptable_pain_range,omitempty"`
	WarningSigns        []string `json:"warning_signs"`
	CurrentRiskStatus   string   `json:"current_risk_status"`
	RiskScore           int      `json:"risk_score"`
}

// ValidationError reports the daily log fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid daily log fields: " + strings.Join(e.Fields, ", ")
}
