package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockPatientRepo struct {
	data map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{data: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.data[p.ID] = p
	return nil
}
func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := m.data[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}
func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.data[p.ID]; !ok {
		return ErrNotFound
	}
	m.data[p.ID] = p
	return nil
}
func (m *mockPatientRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.data {
		if p.AssignedDoctorID != nil && *p.AssignedDoctorID == doctorID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockPatientRepo())

	p := &Patient{Name: "Jordan Reyes", Email: "jordan@example.com"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient() error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected assigned ID after create")
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := NewService(newMockPatientRepo())

	tests := []struct {
		name    string
		patient Patient
	}{
		{"missing name", Patient{Email: "a@example.com"}},
		{"missing email", Patient{Name: "A"}},
		{"malformed email", Patient{Name: "A", Email: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreatePatient(context.Background(), &tt.patient); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAssignDoctor(t *testing.T) {
	repo := newMockPatientRepo()
	svc := NewService(repo)

	p := &Patient{Name: "Sam Okafor", Email: "sam@example.com"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient() error: %v", err)
	}

	doctorID := uuid.New()
	updated, err := svc.AssignDoctor(context.Background(), p.ID, doctorID)
	if err != nil {
		t.Fatalf("AssignDoctor() error: %v", err)
	}
	if updated.AssignedDoctorID == nil || *updated.AssignedDoctorID != doctorID {
		t.Errorf("assigned doctor = %v, want %s", updated.AssignedDoctorID, doctorID)
	}

	patients, total, err := svc.ListPatientsByDoctor(context.Background(), doctorID, 20, 0)
	if err != nil {
		t.Fatalf("ListPatientsByDoctor() error: %v", err)
	}
	if total != 1 || len(patients) != 1 {
		t.Errorf("expected 1 assigned patient, got %d", total)
	}
}

func TestAssignDoctor_UnknownPatient(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	if _, err := svc.AssignDoctor(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Error("expected error for unknown patient")
	}
}
