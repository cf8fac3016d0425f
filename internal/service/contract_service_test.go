package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arman-dn/fleetops-contracts/internal/config"
	"github.com/arman-dn/fleetops-contracts/internal/model"
)

// fakeStore mirrors the repository's conditional-update semantics in
// memory, including the guards in the WHERE clauses.
type fakeStore struct {
	contracts map[uuid.UUID]*model.Contract
	edits     []model.ContractEdit
	seq       int64

	// beforeConfirm runs between the service's read and the guarded
	// update, standing in for a concurrent writer.
	beforeConfirm func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{contracts: map[uuid.UUID]*model.Contract{}, seq: 999}
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	c, ok := s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) ListByVehicle(_ context.Context, vehicleID uuid.UUID) ([]model.Contract, error) {
	var result []model.Contract
	for _, c := range s.contracts {
		if c.VehicleID == vehicleID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (s *fakeStore) Create(_ context.Context, contract *model.Contract) (*model.Contract, error) {
	s.seq++
	cp := *contract
	cp.ID = uuid.New()
	cp.ContractNumber = s.seq
	cp.Status = model.StatusDraft
	cp.PaymentStatus = model.PaymentPending
	cp.CreatedAt = time.Now()
	s.contracts[cp.ID] = &cp
	result := cp
	return &result, nil
}

func (s *fakeStore) UpdateDraft(_ context.Context, contract *model.Contract, edit *model.ContractEdit) (int64, error) {
	c, ok := s.contracts[contract.ID]
	if !ok || c.Status != model.StatusDraft || c.Disabled {
		return 0, nil
	}
	c.CustomerID = contract.CustomerID
	c.VehicleID = contract.VehicleID
	c.HirerType = contract.HirerType
	c.SponsorID = contract.SponsorID
	c.CompanyID = contract.CompanyID
	c.RentalType = contract.RentalType
	c.StartDate = contract.StartDate
	c.EndDate = contract.EndDate
	c.Rate = contract.Rate
	c.TotalDays = contract.TotalDays
	c.MileageLimit = contract.MileageLimit
	c.ExtraKmRate = contract.ExtraKmRate
	c.Subtotal = contract.Subtotal
	c.VATAmount = contract.VATAmount
	c.TotalAmount = contract.TotalAmount
	c.SecurityDeposit = contract.SecurityDeposit
	s.edits = append(s.edits, *edit)
	return 1, nil
}

func (s *fakeStore) Confirm(_ context.Context, id, actor uuid.UUID, at time.Time) (int64, error) {
	if s.beforeConfirm != nil {
		s.beforeConfirm()
	}
	c, ok := s.contracts[id]
	if !ok || c.Status != model.StatusDraft || c.Disabled || c.ConfirmedAt != nil {
		return 0, nil
	}
	if available, _ := s.VehicleAvailable(context.Background(), c.VehicleID, c.StartDate, c.EndDate, &c.ID); !available {
		return 0, nil
	}
	c.Status = model.StatusConfirmed
	c.ConfirmedBy = &actor
	c.ConfirmedAt = &at
	return 1, nil
}

func (s *fakeStore) Activate(_ context.Context, id, actor uuid.UUID, at time.Time, odometerStart int64, fuelLevelStart, vehicleCondition string) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.Status != model.StatusConfirmed || c.Disabled || c.ActivatedAt != nil {
		return 0, nil
	}
	if available, _ := s.VehicleAvailable(context.Background(), c.VehicleID, c.StartDate, c.EndDate, &c.ID); !available {
		return 0, nil
	}
	c.Status = model.StatusActive
	c.ActivatedBy = &actor
	c.ActivatedAt = &at
	c.OdometerStart = &odometerStart
	c.FuelLevelStart = &fuelLevelStart
	c.VehicleCondition = &vehicleCondition
	return 1, nil
}

func (s *fakeStore) Complete(_ context.Context, id, actor uuid.UUID, at time.Time, odometerEnd int64, fuelLevelEnd string, extraKmDriven int64, extraKmCharge, fuelCharge, damageCharge, otherCharges, totalExtraCharges, outstandingBalance decimal.Decimal) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.Status != model.StatusActive || c.Disabled || c.CompletedAt != nil {
		return 0, nil
	}
	c.Status = model.StatusCompleted
	c.CompletedBy = &actor
	c.CompletedAt = &at
	c.OdometerEnd = &odometerEnd
	c.FuelLevelEnd = &fuelLevelEnd
	c.ExtraKmDriven = extraKmDriven
	c.ExtraKmCharge = extraKmCharge
	c.FuelCharge = fuelCharge
	c.DamageCharge = damageCharge
	c.OtherCharges = otherCharges
	c.TotalExtraCharges = totalExtraCharges
	c.OutstandingBalance = outstandingBalance
	return 1, nil
}

func (s *fakeStore) Close(_ context.Context, id, actor uuid.UUID, at time.Time) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.Status != model.StatusCompleted || c.Disabled || c.ClosedAt != nil {
		return 0, nil
	}
	if !c.OutstandingBalance.IsZero() && !c.FinalPaymentReceived {
		return 0, nil
	}
	c.Status = model.StatusClosed
	c.ClosedBy = &actor
	c.ClosedAt = &at
	c.PaymentStatus = model.PaymentPaid
	return 1, nil
}

func (s *fakeStore) RecordDeposit(_ context.Context, id uuid.UUID, method string, at time.Time, newStatus model.PaymentStatus) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.DepositPaid || c.Status.Terminal() || c.Disabled {
		return 0, nil
	}
	c.DepositPaid = true
	c.DepositPaidDate = &at
	c.DepositPaidMethod = &method
	c.PaymentStatus = newStatus
	return 1, nil
}

func (s *fakeStore) RecordFinalPayment(_ context.Context, id uuid.UUID, method string, at time.Time) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.FinalPaymentReceived || c.Status.Terminal() || c.Disabled {
		return 0, nil
	}
	c.FinalPaymentReceived = true
	c.FinalPaymentDate = &at
	c.FinalPaymentMethod = &method
	c.OutstandingBalance = decimal.Zero
	c.PaymentStatus = model.PaymentPaid
	return 1, nil
}

func (s *fakeStore) RecordRefund(_ context.Context, id uuid.UUID, at time.Time) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.Status != model.StatusClosed || !c.DepositPaid || c.DepositRefunded {
		return 0, nil
	}
	c.DepositRefunded = true
	c.DepositRefundedDate = &at
	c.PaymentStatus = model.PaymentRefunded
	return 1, nil
}

func (s *fakeStore) SetDisabled(_ context.Context, id, actor uuid.UUID, at time.Time, disabled bool) (int64, error) {
	c, ok := s.contracts[id]
	if !ok || c.Disabled == disabled {
		return 0, nil
	}
	c.Disabled = disabled
	if disabled {
		c.DisabledBy = &actor
		c.DisabledAt = &at
	} else {
		c.DisabledBy = nil
		c.DisabledAt = nil
	}
	return 1, nil
}

func (s *fakeStore) VehicleAvailable(_ context.Context, vehicleID uuid.UUID, startDate, endDate time.Time, excludeContractID *uuid.UUID) (bool, error) {
	for _, c := range s.contracts {
		if c.VehicleID != vehicleID || c.Disabled {
			continue
		}
		if excludeContractID != nil && c.ID == *excludeContractID {
			continue
		}
		blocking := false
		for _, status := range model.BlockingStatuses {
			if c.Status == status {
				blocking = true
			}
		}
		if !blocking {
			continue
		}
		if !(c.EndDate.Before(startDate) || c.StartDate.After(endDate)) {
			return false, nil
		}
	}
	return true, nil
}

func (s *fakeStore) ListOverdueActive(_ context.Context, asOf time.Time) ([]model.Contract, error) {
	var result []model.Contract
	for _, c := range s.contracts {
		if c.Status == model.StatusActive && !c.Disabled && c.EndDate.Before(asOf) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (s *fakeStore) ListByContract(_ context.Context, contractID uuid.UUID) ([]model.ContractEdit, error) {
	var result []model.ContractEdit
	for _, e := range s.edits {
		if e.ContractID == contractID {
			result = append(result, e)
		}
	}
	return result, nil
}

type fakeAudit struct {
	entries []model.AuditLogEntry
	failErr error
}

func (a *fakeAudit) Append(_ context.Context, entry *model.AuditLogEntry) error {
	if a.failErr != nil {
		return a.failErr
	}
	e := *entry
	e.CreatedAt = time.Now()
	a.entries = append(a.entries, e)
	return nil
}

func (a *fakeAudit) ListByContract(_ context.Context, contractID uuid.UUID) ([]model.AuditLogEntry, error) {
	var result []model.AuditLogEntry
	for _, e := range a.entries {
		if e.ContractID != nil && *e.ContractID == contractID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (a *fakeAudit) ListForPeriod(_ context.Context, _, _ time.Time) ([]model.AuditLogEntry, error) {
	return a.entries, nil
}

func (a *fakeAudit) lastAction() model.AuditAction {
	if len(a.entries) == 0 {
		return ""
	}
	return a.entries[len(a.entries)-1].Action
}

type fakeDirectory struct {
	customers map[uuid.UUID]*model.Customer
	vehicles  map[uuid.UUID]*model.Vehicle
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		customers: map[uuid.UUID]*model.Customer{},
		vehicles:  map[uuid.UUID]*model.Vehicle{},
	}
}

func (d *fakeDirectory) GetCustomer(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := d.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (d *fakeDirectory) GetVehicle(_ context.Context, id uuid.UUID) (*model.Vehicle, error) {
	v, ok := d.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

type fakeDocument struct{}

func (fakeDocument) Generate(_ model.PaymentReceipt) ([]byte, error) { return []byte("%PDF"), nil }

type fakeExporter struct {
	last model.AuditTrailExport
}

func (f *fakeExporter) Generate(export model.AuditTrailExport) ([]byte, error) {
	f.last = export
	return []byte("xlsx"), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Contracts: config.ContractsConfig{
			VATDefaultPercent:      "5",
			SecurityDepositDefault: "1000",
			Currency:               "AED",
			ContractNumberStart:    1000,
		},
	}
}

func newTestService(t *testing.T) (*ContractService, *fakeStore, *fakeAudit, *fakeDirectory) {
	t.Helper()
	store := newFakeStore()
	audit := &fakeAudit{}
	directory := newFakeDirectory()

	svc := NewContractService(store, store, audit, directory, fakeDocument{}, &fakeExporter{}, testConfig(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, store, audit, directory
}

func seedDirectory(d *fakeDirectory) (uuid.UUID, uuid.UUID) {
	customerID := uuid.New()
	vehicleID := uuid.New()
	d.customers[customerID] = &model.Customer{ID: customerID, FullName: "Aigerim S."}
	d.vehicles[vehicleID] = &model.Vehicle{ID: vehicleID, Plate: "A 123 BC", Make: "Toyota", Model: "Camry"}
	return customerID, vehicleID
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func baseTerms(customerID, vehicleID uuid.UUID) ContractTermsInput {
	return ContractTermsInput{
		CustomerID:   customerID,
		VehicleID:    vehicleID,
		HirerType:    model.HirerDirect,
		RentalType:   model.RentalDaily,
		StartDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Rate:         dec("100"),
		MileageLimit: 50,
		ExtraKmRate:  dec("1"),
	}
}

var (
	staff   = model.Principal{UserID: uuid.New(), Role: model.RoleStaff}
	manager = model.Principal{UserID: uuid.New(), Role: model.RoleManager}
	admin   = model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
)

func mustCreate(t *testing.T, svc *ContractService, d *fakeDirectory) *model.Contract {
	t.Helper()
	customerID, vehicleID := seedDirectory(d)
	contract, err := svc.CreateContract(context.Background(), CreateContractInput{
		Terms:     baseTerms(customerID, vehicleID),
		Principal: staff,
		IP:        "10.0.0.1",
	})
	require.NoError(t, err)
	return contract
}

func TestCreateContractDerivesMoney(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	assert.Equal(t, model.StatusDraft, contract.Status)
	assert.Equal(t, int64(1000), contract.ContractNumber)
	assert.Equal(t, 3, contract.TotalDays)
	assert.Equal(t, "300.00", contract.Subtotal.StringFixed(2))
	assert.Equal(t, "15.00", contract.VATAmount.StringFixed(2))
	assert.Equal(t, "315.00", contract.TotalAmount.StringFixed(2))
	assert.Equal(t, "1000.00", contract.SecurityDeposit.StringFixed(2))
	assert.Equal(t, model.PaymentPending, contract.PaymentStatus)
	assert.Equal(t, model.AuditContractCreated, audit.lastAction())
}

func TestCreateContractUnknownCustomer(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	_, vehicleID := seedDirectory(directory)

	_, err := svc.CreateContract(context.Background(), CreateContractInput{
		Terms:     baseTerms(uuid.New(), vehicleID),
		Principal: staff,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateContractDisabledVehicle(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	customerID, vehicleID := seedDirectory(directory)
	directory.vehicles[vehicleID].Disabled = true

	_, err := svc.CreateContract(context.Background(), CreateContractInput{
		Terms:     baseTerms(customerID, vehicleID),
		Principal: staff,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateContractSponsorRequired(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	customerID, vehicleID := seedDirectory(directory)

	terms := baseTerms(customerID, vehicleID)
	terms.HirerType = model.HirerWithSponsor

	_, err := svc.CreateContract(context.Background(), CreateContractInput{Terms: terms, Principal: staff})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEditContractRequiresReason(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.EditContract(context.Background(), EditContractInput{
		ContractID: contract.ID,
		Terms:      baseTerms(contract.CustomerID, contract.VehicleID),
		Reason:     "   ",
		Principal:  staff,
	})
	assert.ErrorIs(t, err, ErrEditReasonRequired)
}

func TestEditContractRecordsSnapshot(t *testing.T) {
	svc, store, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	terms := baseTerms(contract.CustomerID, contract.VehicleID)
	terms.Rate = dec("120")

	updated, err := svc.EditContract(context.Background(), EditContractInput{
		ContractID: contract.ID,
		Terms:      terms,
		Reason:     "rate negotiated",
		Principal:  staff,
		IP:         "10.0.0.2",
	})
	require.NoError(t, err)

	assert.Equal(t, "360.00", updated.Subtotal.StringFixed(2))
	assert.Equal(t, "378.00", updated.TotalAmount.StringFixed(2))

	require.Len(t, store.edits, 1)
	edit := store.edits[0]
	assert.Equal(t, "rate negotiated", edit.EditReason)
	assert.Contains(t, edit.FieldsBefore, `"100"`)
	assert.Contains(t, edit.FieldsAfter, `"120"`)
	assert.Equal(t, "10.0.0.2", edit.IPAddress)
	assert.Equal(t, model.AuditContractEdited, audit.lastAction())
}

func TestEditConfirmedContractLocked(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)

	_, err = svc.EditContract(context.Background(), EditContractInput{
		ContractID: contract.ID,
		Terms:      baseTerms(contract.CustomerID, contract.VehicleID),
		Reason:     "too late",
		Principal:  admin,
	})
	assert.ErrorIs(t, err, ErrContractLocked)
}

func TestConfirmRequiresManager(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, staff, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestConfirmSetsActorAndTimestamp(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	confirmed, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)

	assert.Equal(t, model.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, manager.UserID, *confirmed.ConfirmedBy)
	require.NotNil(t, confirmed.ConfirmedAt)
}

func TestConfirmTwiceFails(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)

	_, err = svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmOverlappingVehicleUnavailable(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	first := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), first.ID, manager, "")
	require.NoError(t, err)

	// second draft, same vehicle, overlapping window
	second, err := svc.CreateContract(context.Background(), CreateContractInput{
		Terms:     baseTerms(first.CustomerID, first.VehicleID),
		Principal: staff,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmContract(context.Background(), second.ID, manager, "")
	assert.ErrorIs(t, err, ErrVehicleUnavailable)
}

func TestConfirmConcurrentOverlapOnlyOneWins(t *testing.T) {
	svc, store, _, directory := newTestService(t)
	first := mustCreate(t, svc, directory)

	second, err := svc.CreateContract(context.Background(), CreateContractInput{
		Terms:     baseTerms(first.CustomerID, first.VehicleID),
		Principal: staff,
	})
	require.NoError(t, err)

	// Both drafts pass the fail-fast read; the second confirmation lands
	// between the first one's read and its guarded update.
	store.beforeConfirm = func() {
		store.beforeConfirm = nil
		now := time.Now()
		store.contracts[second.ID].Status = model.StatusConfirmed
		store.contracts[second.ID].ConfirmedAt = &now
	}

	_, err = svc.ConfirmContract(context.Background(), first.ID, manager, "")
	assert.ErrorIs(t, err, ErrVehicleUnavailable)

	assert.Equal(t, model.StatusDraft, store.contracts[first.ID].Status)
	assert.Equal(t, model.StatusConfirmed, store.contracts[second.ID].Status)
}

func TestConfirmConcurrentStatusChangeConflicts(t *testing.T) {
	svc, store, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	// A non-blocking concurrent transition: the guarded update touches
	// zero rows, the vehicle is still free, so the caller must retry.
	store.beforeConfirm = func() {
		store.beforeConfirm = nil
		store.contracts[contract.ID].Status = model.StatusClosed
	}

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestInvalidTransitionsLeaveContractUntouched(t *testing.T) {
	svc, store, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CompleteContract(context.Background(), CompleteContractInput{
		ContractID:   contract.ID,
		OdometerEnd:  1100,
		FuelLevelEnd: "FULL",
		Principal:    manager,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.CloseContract(context.Background(), contract.ID, manager, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current := store.contracts[contract.ID]
	assert.Equal(t, model.StatusDraft, current.Status)
	assert.Nil(t, current.ActivatedAt)
	assert.Nil(t, current.CompletedAt)
	assert.Nil(t, current.ClosedAt)
	assert.Equal(t, "315.00", current.TotalAmount.StringFixed(2))
}

func TestActivateHappyPath(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)

	active, err := svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, active.Status)
	require.NotNil(t, active.OdometerStart)
	assert.Equal(t, int64(1000), *active.OdometerStart)
	assert.Equal(t, model.AuditContractActivated, audit.lastAction())
}

func TestActivateOverlapFailsWithVehicleUnavailable(t *testing.T) {
	svc, store, _, directory := newTestService(t)
	first := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), first.ID, manager, "")
	require.NoError(t, err)

	// Force an overlapping active contract on the same vehicle behind the
	// service's back, as a concurrent activation would.
	otherID := uuid.New()
	store.contracts[otherID] = &model.Contract{
		ID:        otherID,
		VehicleID: first.VehicleID,
		Status:    model.StatusActive,
		StartDate: first.StartDate,
		EndDate:   first.EndDate,
	}

	_, err = svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     first.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	assert.ErrorIs(t, err, ErrVehicleUnavailable)

	assert.Equal(t, model.StatusConfirmed, store.contracts[first.ID].Status)
}

func TestCompleteDerivesSettlement(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	_, err = svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	require.NoError(t, err)

	completed, err := svc.CompleteContract(context.Background(), CompleteContractInput{
		ContractID:   contract.ID,
		OdometerEnd:  1250,
		FuelLevelEnd: "HALF",
		Principal:    manager,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, completed.Status)
	assert.Equal(t, int64(100), completed.ExtraKmDriven)
	assert.Equal(t, "100.00", completed.ExtraKmCharge.StringFixed(2))
	assert.Equal(t, "100.00", completed.TotalExtraCharges.StringFixed(2))
	assert.Equal(t, "415.00", completed.OutstandingBalance.StringFixed(2))
}

func TestCompleteRejectsOdometerRollback(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	_, err = svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	require.NoError(t, err)

	_, err = svc.CompleteContract(context.Background(), CompleteContractInput{
		ContractID:   contract.ID,
		OdometerEnd:  900,
		FuelLevelEnd: "FULL",
		Principal:    manager,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func completeLifecycle(t *testing.T, svc *ContractService, directory *fakeDirectory) *model.Contract {
	t.Helper()
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	_, err = svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	require.NoError(t, err)
	completed, err := svc.CompleteContract(context.Background(), CompleteContractInput{
		ContractID:   contract.ID,
		OdometerEnd:  1250,
		FuelLevelEnd: "HALF",
		Principal:    manager,
	})
	require.NoError(t, err)
	return completed
}

func TestCloseGateBlocksUnsettledContract(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	completed := completeLifecycle(t, svc, directory)

	_, err := svc.CloseContract(context.Background(), completed.ID, manager, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.RecordFinalPayment(context.Background(), completed.ID, "CARD", staff, "")
	require.NoError(t, err)

	closed, err := svc.CloseContract(context.Background(), completed.ID, manager, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, closed.Status)
	assert.Equal(t, model.PaymentPaid, closed.PaymentStatus)
}

func TestRecordDepositMovesPaymentToPartial(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	updated, err := svc.RecordDeposit(context.Background(), contract.ID, "CASH", staff, "")
	require.NoError(t, err)

	assert.True(t, updated.DepositPaid)
	assert.Equal(t, model.PaymentPartial, updated.PaymentStatus)
	assert.Equal(t, model.AuditDepositRecorded, audit.lastAction())

	_, err = svc.RecordDeposit(context.Background(), contract.ID, "CASH", staff, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPaymentsRejectedOnDisabledContract(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.SetContractDisabled(context.Background(), contract.ID, true, admin, "")
	require.NoError(t, err)

	_, err = svc.RecordDeposit(context.Background(), contract.ID, "CASH", staff, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.RecordFinalPayment(context.Background(), contract.ID, "CARD", staff, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecordFinalPaymentSettlesBalance(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	completed := completeLifecycle(t, svc, directory)

	updated, err := svc.RecordFinalPayment(context.Background(), completed.ID, "TRANSFER", staff, "")
	require.NoError(t, err)

	assert.True(t, updated.FinalPaymentReceived)
	assert.Equal(t, "0.00", updated.OutstandingBalance.StringFixed(2))
	assert.Equal(t, model.PaymentPaid, updated.PaymentStatus)
}

func TestRefundOnlyAfterClose(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.RecordDeposit(context.Background(), contract.ID, "CASH", staff, "")
	require.NoError(t, err)

	_, err = svc.RecordRefund(context.Background(), contract.ID, manager, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	_, err = svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	require.NoError(t, err)
	_, err = svc.CompleteContract(context.Background(), CompleteContractInput{
		ContractID:   contract.ID,
		OdometerEnd:  1100,
		FuelLevelEnd: "FULL",
		Principal:    manager,
	})
	require.NoError(t, err)
	_, err = svc.RecordFinalPayment(context.Background(), contract.ID, "CARD", staff, "")
	require.NoError(t, err)
	_, err = svc.CloseContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)

	refunded, err := svc.RecordRefund(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	assert.True(t, refunded.DepositRefunded)
	assert.Equal(t, model.PaymentRefunded, refunded.PaymentStatus)

	_, err = svc.RecordRefund(context.Background(), contract.ID, manager, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAuditFailureDoesNotFailTransition(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	audit.failErr = errors.New("sink down")

	confirmed, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, confirmed.Status)
}

func TestDisableRequiresAdmin(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.SetContractDisabled(context.Background(), contract.ID, true, manager, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	disabled, err := svc.SetContractDisabled(context.Background(), contract.ID, true, admin, "")
	require.NoError(t, err)
	assert.True(t, disabled.Disabled)
	require.NotNil(t, disabled.DisabledAt)

	enabled, err := svc.SetContractDisabled(context.Background(), contract.ID, false, admin, "")
	require.NoError(t, err)
	assert.False(t, enabled.Disabled)
	assert.Nil(t, enabled.DisabledAt)
}

func TestDisabledContractDoesNotBlockAvailability(t *testing.T) {
	svc, _, _, directory := newTestService(t)
	first := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), first.ID, manager, "")
	require.NoError(t, err)

	_, err = svc.SetContractDisabled(context.Background(), first.ID, true, admin, "")
	require.NoError(t, err)

	available, err := svc.IsVehicleAvailable(context.Background(), first.VehicleID, first.StartDate, first.EndDate, nil)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestPrintReceiptRequiresPayment(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.PrintReceipt(context.Background(), contract.ID, model.ReceiptDeposit, staff, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordDeposit(context.Background(), contract.ID, "CASH", staff, "")
	require.NoError(t, err)

	result, err := svc.PrintReceipt(context.Background(), contract.ID, model.ReceiptDeposit, staff, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content)
	assert.Contains(t, result.FileName, "deposit")
	assert.Equal(t, model.AuditReceiptPrinted, audit.lastAction())
}

func TestExportAuditTrail(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	mustCreate(t, svc, directory)

	_, err := svc.ExportAuditTrail(context.Background(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		staff, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	result, err := svc.ExportAuditTrail(context.Background(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		manager, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content)
	assert.Equal(t, model.AuditTrailExported, audit.lastAction())
}

func TestExportAuditTrailTruncatesBoundsToDates(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	exporter := &fakeExporter{}
	svc := NewContractService(store, store, audit, newFakeDirectory(), fakeDocument{}, exporter, testConfig(), zerolog.Nop())

	result, err := svc.ExportAuditTrail(context.Background(),
		time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC),
		time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC),
		manager, "")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), exporter.last.PeriodStart)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), exporter.last.PeriodEnd)
	assert.Equal(t, "audit-trail-20250301-20250305.xlsx", result.FileName)
}

func TestSweepOverdueFlagsActiveContracts(t *testing.T) {
	svc, _, audit, directory := newTestService(t)
	contract := mustCreate(t, svc, directory)

	_, err := svc.ConfirmContract(context.Background(), contract.ID, manager, "")
	require.NoError(t, err)
	_, err = svc.ActivateContract(context.Background(), ActivateContractInput{
		ContractID:     contract.ID,
		OdometerStart:  1000,
		FuelLevelStart: "FULL",
		Principal:      manager,
	})
	require.NoError(t, err)

	// fixed clock is 2025-03-10, contract ended 2025-03-04
	count, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, model.AuditOverdueFlagged, audit.lastAction())
}

func TestListEditsUnknownContract(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.ListEdits(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
