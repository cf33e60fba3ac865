package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/recoverlink/recoverlink/internal/domain/identity"
	"github.com/recoverlink/recoverlink/internal/platform/auth"
)

type mockDirectory struct {
	patients map[uuid.UUID]*identity.Patient
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{patients: make(map[uuid.UUID]*identity.Patient)}
}

func (m *mockDirectory) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	if p, ok := m.patients[id]; ok {
		return p, nil
	}
	return nil, identity.ErrNotFound
}

func (m *mockDirectory) ListPatientsByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*identity.Patient, int, error) {
	var out []*identity.Patient
	for _, p := range m.patients {
		if p.AssignedDoctorID != nil && *p.AssignedDoctorID == doctorID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type handlerFixture struct {
	*fixture
	h         *Handler
	e         *echo.Echo
	directory *mockDirectory
}

func newHandlerFixture() *handlerFixture {
	f := newFixture()
	directory := newMockDirectory()
	return &handlerFixture{
		fixture:   f,
		h:         NewHandler(f.svc, directory),
		e:         echo.New(),
		directory: directory,
	}
}

func (hf *handlerFixture) patientContext(method, body string, patientID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	ctx := context.WithValue(req.Context(), auth.PatientIDKey, patientID.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return hf.e.NewContext(req, rec), rec
}

func (hf *handlerFixture) clinicianContext(method, body string, doctorID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, doctorID.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return hf.e.NewContext(req, rec), rec
}

// ── Patient Handlers ──

func TestHandler_CreateDailyLog(t *testing.T) {
	hf := newHandlerFixture()
	patientID := uuid.New()
	hf.withProfile(patientID, "2026-08-01")
	hf.at(day("2026-08-04"))

	body := `{"pain_level":4,"mood_level":3,"sleep_hours":7,"appetite":"good"}`
	c, rec := hf.patientContext(http.MethodPost, body, patientID)
	if err := hf.h.CreateDailyLog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var result EvaluateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.RiskStatus != StatusStable {
		t.Errorf("status = %q, want stable", result.RiskStatus)
	}
}

func TestHandler_CreateDailyLog_Validation(t *testing.T) {
	hf := newHandlerFixture()
	patientID := uuid.New()

	body := `{"pain_level":15,"mood_level":3,"sleep_hours":7,"appetite":"good"}`
	c, rec := hf.patientContext(http.MethodPost, body, patientID)
	if err := hf.h.CreateDailyLog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pain_level") {
		t.Errorf("response should name the offending field: %s", rec.Body.String())
	}
}

func TestHandler_CreateDailyLog_NoPatientIdentity(t *testing.T) {
	hf := newHandlerFixture()

	body := `{"pain_level":4,"mood_level":3,"sleep_hours":7,"appetite":"good"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := hf.e.NewContext(req, rec)

	err := hf.h.CreateDailyLog(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 without patient identity, got %v", err)
	}
}

func TestHandler_ListMyLogs(t *testing.T) {
	hf := newHandlerFixture()
	patientID := uuid.New()
	hf.withProfile(patientID, "2026-08-01")
	hf.at(day("2026-08-04"))

	if _, err := hf.svc.Evaluate(context.Background(), patientID, submission(4, false)); err != nil {
		t.Fatal(err)
	}

	c, rec := hf.patientContext(http.MethodGet, "", patientID)
	if err := hf.h.ListMyLogs(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestHandler_GetGuidance_NoProfile(t *testing.T) {
	hf := newHandlerFixture()
	c, rec := hf.patientContext(http.MethodGet, "", uuid.New())
	if err := hf.h.GetGuidance(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 even without profile, got %d", rec.Code)
	}

	var g Guidance
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if g.HasProfile {
		t.Error("expected degraded guidance")
	}
}

// ── Clinician Handlers ──

func TestHandler_CreateProfile(t *testing.T) {
	hf := newHandlerFixture()
	doctorID := uuid.New()

	body := `{"patient_id":"` + uuid.New().String() + `","condition_type":"knee surgery",` +
		`"start_date":"2026-08-01T00:00:00Z","expected_duration_days":42,` +
		`"acceptable_pain_week_1":5,"acceptable_pain_week_3":3}`
	c, rec := hf.clinicianContext(http.MethodPost, body, doctorID)
	if err := hf.h.CreateProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateProfile_BadRequest(t *testing.T) {
	hf := newHandlerFixture()
	body := `{"patient_id":"` + uuid.New().String() + `","expected_duration_days":0}`
	c, _ := hf.clinicianContext(http.MethodPost, body, uuid.New())
	if err := hf.h.CreateProfile(c); err == nil {
		t.Error("expected error for invalid profile")
	}
}

func TestHandler_GetProfile_NotFound(t *testing.T) {
	hf := newHandlerFixture()
	c, _ := hf.clinicianContext(http.MethodGet, "", uuid.New())
	c.SetParamNames("patientID")
	c.SetParamValues(uuid.New().String())
	err := hf.h.GetProfile(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListPatients_EnrichedWithRisk(t *testing.T) {
	hf := newHandlerFixture()
	doctorID := uuid.New()
	patientID := uuid.New()
	hf.directory.patients[patientID] = &identity.Patient{
		ID:               patientID,
		Name:             "Morgan Lee",
		Email:            "morgan@example.com",
		AssignedDoctorID: &doctorID,
	}
	hf.withProfile(patientID, "2026-08-01")
	hf.at(day("2026-08-04"))
	if _, err := hf.svc.Evaluate(context.Background(), patientID, submission(9, false)); err != nil {
		t.Fatal(err)
	}

	c, rec := hf.clinicianContext(http.MethodGet, "", doctorID)
	if err := hf.h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data []PatientSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("patients = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].LatestRiskStatus != StatusNeedsReview {
		t.Errorf("latest status = %q, want needs_review", resp.Data[0].LatestRiskStatus)
	}
	if !resp.Data[0].DeviationFlag {
		t.Error("expected deviation flag in summary")
	}
}

func TestHandler_ListPatients_NoLogsDefaultsStable(t *testing.T) {
	hf := newHandlerFixture()
	doctorID := uuid.New()
	patientID := uuid.New()
	hf.directory.patients[patientID] = &identity.Patient{
		ID: patientID, Name: "Quiet Patient", Email: "q@example.com", AssignedDoctorID: &doctorID,
	}

	c, rec := hf.clinicianContext(http.MethodGet, "", doctorID)
	if err := hf.h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data []PatientSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data[0].LatestRiskStatus != StatusStable {
		t.Errorf("status = %q, want stable default", resp.Data[0].LatestRiskStatus)
	}
}

func TestHandler_ListPatients_StoreFailureNotMaskedAsStable(t *testing.T) {
	hf := newHandlerFixture()
	doctorID := uuid.New()
	patientID := uuid.New()
	hf.directory.patients[patientID] = &identity.Patient{
		ID: patientID, Name: "Morgan Lee", Email: "morgan@example.com", AssignedDoctorID: &doctorID,
	}
	hf.risks.latestErr = errors.New("connection reset")

	c, _ := hf.clinicianContext(http.MethodGet, "", doctorID)
	err := hf.h.ListPatients(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("a risk store failure must fail the request, got %v", err)
	}
}

func TestHandler_GetPatientDetail(t *testing.T) {
	hf := newHandlerFixture()
	doctorID := uuid.New()
	patientID := uuid.New()
	hf.directory.patients[patientID] = &identity.Patient{
		ID: patientID, Name: "Morgan Lee", Email: "morgan@example.com", AssignedDoctorID: &doctorID,
	}
	hf.withProfile(patientID, "2026-08-01")
	hf.at(day("2026-08-04"))
	if _, err := hf.svc.Evaluate(context.Background(), patientID, submission(7, true)); err != nil {
		t.Fatal(err)
	}

	c, rec := hf.clinicianContext(http.MethodGet, "", doctorID)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())
	if err := hf.h.GetPatientDetail(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var detail PatientDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if detail.LogCount != 1 || len(detail.DailyLogs) != 1 {
		t.Errorf("log count = %d, want 1", detail.LogCount)
	}
	if detail.LatestRiskScore == nil || detail.LatestRiskScore.Status != StatusHighRisk {
		t.Errorf("latest risk = %+v, want high_risk", detail.LatestRiskScore)
	}
	if detail.RecoveryProfile == nil {
		t.Error("expected profile in detail view")
	}
	if len(detail.RecentRiskScores) != 1 {
		t.Errorf("recent scores = %d, want 1", len(detail.RecentRiskScores))
	}
}

func TestHandler_GetPatientDetail_NotAssigned(t *testing.T) {
	hf := newHandlerFixture()
	otherDoctor := uuid.New()
	patientID := uuid.New()
	hf.directory.patients[patientID] = &identity.Patient{
		ID: patientID, Name: "Morgan Lee", Email: "morgan@example.com", AssignedDoctorID: &otherDoctor,
	}

	c, _ := hf.clinicianContext(http.MethodGet, "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())
	err := hf.h.GetPatientDetail(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for unassigned patient, got %v", err)
	}
}

func TestHandler_GetPatientDetail_UnknownPatient(t *testing.T) {
	hf := newHandlerFixture()
	c, _ := hf.clinicianContext(http.MethodGet, "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := hf.h.GetPatientDetail(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
