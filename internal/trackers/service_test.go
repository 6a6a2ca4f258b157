package trackers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

type stubTrackersRepo struct {
	createdTracker *models.Tracker
	createdInvoice *models.Invoice
	createErr      error
	findResult     *models.Tracker
	findErr        error
	exists         bool
	existsErr      error
	listRows       []models.Tracker
	lastQuery      listQuery
	updated        *models.Tracker
	deletedID      uuid.UUID
	deleteErr      error
	invoices       []models.Invoice
}

func (s *stubTrackersRepo) CreateWithInvoice(ctx context.Context, tracker *models.Tracker, invoice *models.Invoice) error {
	if s.createErr != nil {
		return s.createErr
	}
	if tracker.ID == uuid.Nil {
		tracker.ID = uuid.New()
	}
	invoice.TrackerID = tracker.ID
	s.createdTracker = tracker
	s.createdInvoice = invoice
	return nil
}

func (s *stubTrackersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Tracker, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubTrackersRepo) IdentifierExists(ctx context.Context, identifier string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.exists, nil
}

func (s *stubTrackersRepo) List(ctx context.Context, opts listQuery) ([]models.Tracker, error) {
	s.lastQuery = opts
	return s.listRows, nil
}

func (s *stubTrackersRepo) Update(ctx context.Context, tracker *models.Tracker) error {
	s.updated = tracker
	return nil
}

func (s *stubTrackersRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *stubTrackersRepo) ListInvoices(ctx context.Context, opts listQuery) ([]models.Invoice, error) {
	s.lastQuery = opts
	return s.invoices, nil
}

type stubSMS struct {
	identifier string
	calls      int
	err        error
}

func (s *stubSMS) SendActivationCommand(ctx context.Context, identifier string, chipNumber *string) error {
	s.identifier = identifier
	s.calls++
	return s.err
}

type stubForgetter struct {
	forgotten []string
}

func (s *stubForgetter) Forget(identifier string) {
	s.forgotten = append(s.forgotten, identifier)
}

func newTrackersServiceForTests(repo *stubTrackersRepo) (Service, *stubTrackersRepo, *stubSMS, *stubForgetter) {
	if repo == nil {
		repo = &stubTrackersRepo{}
	}
	sms := &stubSMS{}
	forgetter := &stubForgetter{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, SMS: sms, Snapshots: forgetter, Logger: logg})
	if err != nil {
		panic(err)
	}
	return svc, repo, sms, forgetter
}

func adminPrincipal() policy.Principal {
	return policy.Principal{ID: uuid.New(), Role: enums.RoleAdmin}
}

func TestValidIdentifier(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"123456789012345", true},
		{"12345678901234", false},
		{"1234567890123456", false},
		{"12345678901234a", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidIdentifier(tc.value); got != tc.want {
			t.Fatalf("ValidIdentifier(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestCreateTrackerProvisionsInvoiceAndSendsSMS(t *testing.T) {
	svc, repo, sms, _ := newTrackersServiceForTests(nil)
	owner := uuid.New()
	due := time.Now().AddDate(0, 1, 0)

	result, err := svc.CreateTracker(context.Background(), adminPrincipal(), CreateTrackerInput{
		Identifier:     "123456789012345",
		Model:          "TK-303",
		VehicleID:      uuid.New(),
		OwnerID:        owner,
		LicenseAmount:  decimal.NewFromFloat(89.90),
		LicenseDueDate: due,
	})
	if err != nil {
		t.Fatalf("CreateTracker returned error: %v", err)
	}
	if repo.createdInvoice == nil || repo.createdInvoice.TrackerID != repo.createdTracker.ID {
		t.Fatal("invoice must be linked to the provisioned tracker")
	}
	if !repo.createdInvoice.Amount.Equal(decimal.NewFromFloat(89.90)) {
		t.Fatalf("unexpected invoice amount %s", repo.createdInvoice.Amount)
	}
	if result.Invoice.OwnerID != owner {
		t.Fatal("invoice owner must match tracker owner")
	}
	if sms.calls != 1 || sms.identifier != "123456789012345" {
		t.Fatal("activation command must be sent for the new device")
	}
}

func TestCreateTrackerRejectsBadIdentifier(t *testing.T) {
	svc, _, _, _ := newTrackersServiceForTests(nil)

	_, err := svc.CreateTracker(context.Background(), adminPrincipal(), CreateTrackerInput{
		Identifier:     "not-an-imei",
		Model:          "TK-303",
		VehicleID:      uuid.New(),
		OwnerID:        uuid.New(),
		LicenseAmount:  decimal.NewFromInt(50),
		LicenseDueDate: time.Now(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestCreateTrackerStaffForbidden(t *testing.T) {
	svc, _, _, _ := newTrackersServiceForTests(nil)

	_, err := svc.CreateTracker(context.Background(), policy.Principal{ID: uuid.New(), Role: enums.RoleFuncionario}, CreateTrackerInput{
		Identifier:     "123456789012345",
		Model:          "TK-303",
		VehicleID:      uuid.New(),
		OwnerID:        uuid.New(),
		LicenseAmount:  decimal.NewFromInt(50),
		LicenseDueDate: time.Now(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCheckIdentifierDuplicate(t *testing.T) {
	svc, _, _, _ := newTrackersServiceForTests(&stubTrackersRepo{exists: true})

	check, err := svc.CheckIdentifier(context.Background(), adminPrincipal(), "123456789012345")
	if err != nil {
		t.Fatalf("CheckIdentifier returned error: %v", err)
	}
	if !check.InUse {
		t.Fatal("expected identifier flagged as in use")
	}
}

func TestDeleteTrackerForgetsSnapshot(t *testing.T) {
	tracker := &models.Tracker{ID: uuid.New(), Identifier: "123456789012345", OwnerID: uuid.New()}
	svc, repo, _, forgetter := newTrackersServiceForTests(&stubTrackersRepo{findResult: tracker})

	if err := svc.DeleteTracker(context.Background(), adminPrincipal(), tracker.ID); err != nil {
		t.Fatalf("DeleteTracker returned error: %v", err)
	}
	if repo.deletedID != tracker.ID {
		t.Fatal("expected tracker deleted")
	}
	if len(forgetter.forgotten) != 1 || forgetter.forgotten[0] != tracker.Identifier {
		t.Fatal("snapshot must be dropped with the device record")
	}
}

func TestUpdateTrackerIdentifierImmutable(t *testing.T) {
	tracker := &models.Tracker{ID: uuid.New(), Identifier: "123456789012345", OwnerID: uuid.New(), Model: "TK-303"}
	svc, repo, _, _ := newTrackersServiceForTests(&stubTrackersRepo{findResult: tracker})

	model := "GT06N"
	dto, err := svc.UpdateTracker(context.Background(), adminPrincipal(), tracker.ID, UpdateTrackerInput{Model: &model})
	if err != nil {
		t.Fatalf("UpdateTracker returned error: %v", err)
	}
	if dto.Model != "GT06N" {
		t.Fatalf("model should change, got %q", dto.Model)
	}
	if repo.updated.Identifier != "123456789012345" {
		t.Fatal("identifier must never change")
	}
}
