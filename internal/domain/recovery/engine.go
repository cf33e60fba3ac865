package recovery

import (
	"time"
)

// Score weights. Pain carries the dominant term; the flags add fixed
// bonuses. The result is clamped to [0, MaxScore] and is monotone
// non-decreasing in every input.
const (
	painWeight     = 8
	swellingBonus  = 10
	deviationBonus = 15
	trendBonus     = 10

	MaxScore = 100
)

// Complication index constants. An indicator is one of: active deviation
// flag, swelling, sleep below LowSleepHours, appetite reported poor. When at
// least ComplicationMinIndicators are active the index escalates to
// ElevatedComplicationIndex percent.
const (
	LowSleepHours             = 4.0
	ComplicationMinIndicators = 3
	ElevatedComplicationIndex = 35
)

// trendWindow is the number of most recent logs inspected for a pain trend.
const trendWindow = 3

// NormalizeLog validates a raw submission and returns the canonical daily
// log. The date defaults to now when omitted. All field failures are
// collected into a single ValidationError.
func NormalizeLog(raw LogSubmission, now time.Time) (DailyLog, error) {
	var bad []string

	if raw.PainLevel == nil || *raw.PainLevel < 0 || *raw.PainLevel > 10 {
		bad = append(bad, "pain_level")
	}
	if raw.MoodLevel == nil || *raw.MoodLevel < 1 || *raw.MoodLevel > 5 {
		bad = append(bad, "mood_level")
	}
	if raw.SleepHours == nil || *raw.SleepHours < 0 {
		bad = append(bad, "sleep_hours")
	}
	switch raw.Appetite {
	case AppetiteGood, AppetiteFair, AppetitePoor:
	default:
		bad = append(bad, "appetite")
	}

	date := now
	if raw.Date != "" {
		parsed, err := time.Parse("2006-01-02", raw.Date)
		if err != nil {
			bad = append(bad, "date")
		} else {
			date = parsed
		}
	}

	if len(bad) > 0 {
		return DailyLog{}, &ValidationError{Fields: bad}
	}

	return DailyLog{
		Date:       date,
		PainLevel:  *raw.PainLevel,
		MoodLevel:  *raw.MoodLevel,
		SleepHours: *raw.SleepHours,
		Appetite:   raw.Appetite,
		Swelling:   raw.Swelling,
		BodyPart:   raw.BodyPart,
		NoteText:   raw.NoteText,
	}, nil
}

// ResolveStage derives the recovery stage for a patient at the reference
// time. Two stages exist: the first seven days are "Week 1"; everything
// after is "Week 3", which denotes the post-initial-healing phase regardless
// of actual elapsed weeks. A nil profile yields a sentinel stage with
// HasProfile false and no pain bound.
func ResolveStage(profile *RecoveryProfile, ref time.Time) Stage {
	if profile == nil {
		return Stage{Label: "No profile", HasProfile: false}
	}

	days := int(ref.Sub(profile.StartDate).Hours() / 24)
	if days < 0 {
		days = 0
	}

	if days <= 7 {
		return Stage{
			Label:             "Week 1",
			HasProfile:        true,
			DaysSinceStart:    days,
			AcceptablePainMax: profile.AcceptablePainWeek1,
			Focus:             week1Focus,
			Recommendations:   week1Recommendations,
			WarningSigns:      week1WarningSigns,
		}
	}
	return Stage{
		Label:             "Week 3",
		HasProfile:        true,
		DaysSinceStart:    days,
		AcceptablePainMax: profile.AcceptablePainWeek3,
		Focus:             week3Focus,
		Recommendations:   week3Recommendations,
		WarningSigns:      week3WarningSigns,
	}
}

// IncreasingTrend reports whether pain has strictly increased across the
// three most recent logs. The input must be ordered most recent first, with
// ties on date broken by submission order. Fewer than three logs never
// constitute a trend.
func IncreasingTrend(logs []DailyLog) bool {
	if len(logs) < trendWindow {
		return false
	}
	for i := 0; i < trendWindow-1; i++ {
		if logs[i].PainLevel <= logs[i+1].PainLevel {
			return false
		}
	}
	return true
}

// Classify resolves the risk status and score for today's log. Status rules
// are evaluated in fixed priority order and the first match wins:
//
//	1. pain >= 8                  -> needs_review
//	2. swelling and pain >= 7     -> high_risk
//	3. increasing trend           -> monitor
//	4. otherwise                  -> stable
//
// A very high absolute pain reading outranks the swelling combination, and
// trend-based concern applies only when nothing more acute is present. The
// deviation flag is independent of status: it is set iff a pain bound is
// available and today's pain exceeds it.
func Classify(log DailyLog, stage Stage, trend bool) Classification {
	deviation := stage.HasProfile && log.PainLevel > stage.AcceptablePainMax

	var status string
	switch {
	case log.PainLevel >= 8:
		status = StatusNeedsReview
	case log.Swelling && log.PainLevel >= 7:
		status = StatusHighRisk
	case trend:
		status = StatusMonitor
	default:
		status = StatusStable
	}

	score := painWeight * log.PainLevel
	if log.Swelling {
		score += swellingBonus
	}
	if deviation {
		score += deviationBonus
	}
	if trend {
		score += trendBonus
	}
	if score > MaxScore {
		score = MaxScore
	}

	return Classification{Status: status, Score: score, DeviationFlag: deviation}
}

// ComplicationIndex counts the independent secondary risk indicators on
// today's log and escalates to the elevated percentage when enough are
// active. It is computed independently of the primary status and score.
func ComplicationIndex(log DailyLog, deviation bool) int {
	count := 0
	if deviation {
		count++
	}
	if log.Swelling {
		count++
	}
	if log.SleepHours < LowSleepHours {
		count++
	}
	if log.Appetite == AppetitePoor {
		count++
	}
	if count >= ComplicationMinIndicators {
		return ElevatedComplicationIndex
	}
	return 0
}
