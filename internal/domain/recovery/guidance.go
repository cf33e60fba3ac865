package recovery

// Static stage content served to patients.
const (
	week1Focus = "Rest and initial healing"
	week3Focus = "Gradual activity increase"
)

var week1Recommendations = []string{
	"Take prescribed medications as directed",
	"Rest the affected area",
	"Apply ice if recommended",
	"Monitor for signs of infection",
	"Keep follow-up appointments",
}

var week1WarningSigns = []string{
	"Severe pain (8+)",
	"Signs of infection",
	"Excessive swelling",
	"Difficulty breathing",
}

var week3Recommendations = []string{
	"Begin gentle exercises as recommended",
	"Gradually increase activity level",
	"Continue medication as needed",
	"Monitor pain levels",
	"Attend physical therapy if prescribed",
}

var week3WarningSigns = []string{
	"Increasing pain trend",
	"Pain exceeding acceptable range",
	"Swelling that worsens",
	"Limited mobility",
}

// Degraded content served when no recovery profile has been configured for
// the patient. Risk classification still runs on absolute and trend rules.
const (
	noProfileFocus          = "No recovery profile configured. Please contact your doctor."
	noProfileRecommendation = "Contact your care team to set up a recovery plan."
)

// BuildGuidance merges the resolved stage content with the patient's most
// recent risk state. latest may be nil when no log has been submitted yet.
func BuildGuidance(stage Stage, latest *RiskScore) Guidance {
	g := Guidance{
		Stage:               stage.Label,
		HasProfile:          stage.HasProfile,
		DaysSinceStart:      stage.DaysSinceStart,
		Focus:               stage.Focus,
		Recommendations:     stage.Recommendations,
		AcceptablePainRange: stage.AcceptablePainRange(),
		WarningSigns:        stage.WarningSigns,
		CurrentRiskStatus:   StatusStable,
	}
	if !stage.HasProfile {
		g.Focus = noProfileFocus
		g.Recommendations = []string{noProfileRecommendation}
		g.WarningSigns = []string{}
	}
	if latest != nil {
		g.CurrentRiskStatus = latest.Status
		g.RiskScore = latest.Score
	}
	return g
}
