package recovery

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/recoverlink/recoverlink/internal/domain/identity"
	"github.com/recoverlink/recoverlink/internal/platform/auth"
	"github.com/recoverlink/recoverlink/pkg/pagination"
)

// PatientDirectory is the slice of the identity service needed by the
// clinician dashboard endpoints.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*identity.Patient, int, error)
}

type Handler struct {
	svc       *Service
	directory PatientDirectory
}

func NewHandler(svc *Service, directory PatientDirectory) *Handler {
	return &Handler{svc: svc, directory: directory}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Patient endpoints resolve the patient record from the token.
	patientGroup := api.Group("", auth.RequireRole(auth.RolePatient), auth.RequirePatientIdentity())
	patientGroup.POST("/daily-logs", h.CreateDailyLog)
	patientGroup.GET("/my-logs", h.ListMyLogs)
	patientGroup.GET("/guidance", h.GetGuidance)

	clinicianGroup := api.Group("", auth.RequireRole(auth.RoleClinician))
	clinicianGroup.POST("/recovery-profiles", h.CreateProfile)
	clinicianGroup.GET("/recovery-profiles/:patientID", h.GetProfile)
	clinicianGroup.GET("/patients", h.ListPatients)
	clinicianGroup.GET("/patients/:id", h.GetPatientDetail)
}

func patientIDFromToken(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.PatientIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "token is not linked to a patient record")
	}
	return id, nil
}

// -- Patient Handlers --

func (h *Handler) CreateDailyLog(c echo.Context) error {
	patientID, err := patientIDFromToken(c)
	if err != nil {
		return err
	}

	var raw LogSubmission
	if err := c.Bind(&raw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Evaluate(c.Request().Context(), patientID, raw)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":  vErr.Error(),
				"fields": vErr.Fields,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create daily log")
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListMyLogs(c echo.Context) error {
	patientID, err := patientIDFromToken(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	logs, total, err := h.svc.ListLogs(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetGuidance(c echo.Context) error {
	patientID, err := patientIDFromToken(c)
	if err != nil {
		return err
	}
	g, err := h.svc.GetGuidance(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, g)
}

// -- Clinician Handlers --

func (h *Handler) CreateProfile(c echo.Context) error {
	var p RecoveryProfile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProfile(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProfile(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.GetProfile(c.Request().Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "recovery profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// PatientSummary is a directory record enriched with the latest risk state
// for the clinician dashboard list.
type PatientSummary struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	LatestRiskStatus  string    `json:"latest_risk_status"`
	LatestRiskScore   int       `json:"latest_risk_score"`
	DeviationFlag     bool      `json:"deviation_flag"`
	ComplicationIndex int       `json:"complication_index"`
}

func (h *Handler) ListPatients(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "token subject is not a clinician record")
	}

	pg := pagination.FromContext(c)
	patients, total, err := h.directory.ListPatientsByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	summaries := make([]PatientSummary, 0, len(patients))
	for _, p := range patients {
		summary := PatientSummary{
			ID:               p.ID,
			Name:             p.Name,
			Email:            p.Email,
			LatestRiskStatus: StatusStable,
		}
		latest, err := h.svc.LatestRisk(c.Request().Context(), p.ID)
		switch {
		case err == nil:
			summary.LatestRiskStatus = latest.Status
			summary.LatestRiskScore = latest.Score
			summary.DeviationFlag = latest.DeviationFlag
			summary.ComplicationIndex = latest.ComplicationIndex
		case errors.Is(err, ErrNotFound):
			// No logs yet: stable is the honest default.
		default:
			// A store failure must not render as a reassuring "stable" row.
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		summaries = append(summaries, summary)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(summaries, total, pg.Limit, pg.Offset))
}

const recentScoreLimit = 10

// PatientDetail aggregates everything a clinician sees for one patient.
type PatientDetail struct {
	Patient          *identity.Patient `json:"patient"`
	RecoveryProfile  *RecoveryProfile  `json:"recovery_profile,omitempty"`
	DailyLogs        []*DailyLog       `json:"daily_logs"`
	LogCount         int               `json:"log_count"`
	LatestRiskScore  *RiskScore        `json:"latest_risk_score,omitempty"`
	RecentRiskScores []*RiskScore      `json:"recent_risk_scores"`
}

func (h *Handler) GetPatientDetail(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "token subject is not a clinician record")
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	ctx := c.Request().Context()
	patient, err := h.directory.GetPatient(ctx, patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if patient.AssignedDoctorID == nil || *patient.AssignedDoctorID != doctorID {
		return echo.NewHTTPError(http.StatusForbidden, "patient not assigned to you")
	}

	detail := PatientDetail{Patient: patient}

	profile, err := h.svc.GetProfile(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	detail.RecoveryProfile = profile

	pg := pagination.FromContext(c)
	logs, total, err := h.svc.ListLogs(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	detail.DailyLogs = logs
	detail.LogCount = total

	latest, err := h.svc.LatestRisk(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	detail.LatestRiskScore = latest

	scores, _, err := h.svc.ListRiskScores(ctx, patientID, recentScoreLimit, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	detail.RecentRiskScores = scores

	return c.JSON(http.StatusOK, detail)
}
