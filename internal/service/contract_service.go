package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arman-dn/fleetops-contracts/internal/config"
	"github.com/arman-dn/fleetops-contracts/internal/finance"
	"github.com/arman-dn/fleetops-contracts/internal/model"
)

// ContractStore is the transactional contract persistence surface. All
// transition methods return the number of rows the guarded update touched;
// zero after a successful read means a concurrent writer won.
type ContractStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.Contract, error)
	Create(ctx context.Context, contract *model.Contract) (*model.Contract, error)
	UpdateDraft(ctx context.Context, contract *model.Contract, edit *model.ContractEdit) (int64, error)
	Confirm(ctx context.Context, id, actor uuid.UUID, at time.Time) (int64, error)
	Activate(ctx context.Context, id, actor uuid.UUID, at time.Time, odometerStart int64, fuelLevelStart, vehicleCondition string) (int64, error)
	Complete(ctx context.Context, id, actor uuid.UUID, at time.Time, odometerEnd int64, fuelLevelEnd string, extraKmDriven int64, extraKmCharge, fuelCharge, damageCharge, otherCharges, totalExtraCharges, outstandingBalance decimal.Decimal) (int64, error)
	Close(ctx context.Context, id, actor uuid.UUID, at time.Time) (int64, error)
	RecordDeposit(ctx context.Context, id uuid.UUID, method string, at time.Time, newStatus model.PaymentStatus) (int64, error)
	RecordFinalPayment(ctx context.Context, id uuid.UUID, method string, at time.Time) (int64, error)
	RecordRefund(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	SetDisabled(ctx context.Context, id, actor uuid.UUID, at time.Time, disabled bool) (int64, error)
	VehicleAvailable(ctx context.Context, vehicleID uuid.UUID, startDate, endDate time.Time, excludeContractID *uuid.UUID) (bool, error)
	ListOverdueActive(ctx context.Context, asOf time.Time) ([]model.Contract, error)
}

type EditStore interface {
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ContractEdit, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *model.AuditLogEntry) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.AuditLogEntry, error)
	ListForPeriod(ctx context.Context, from, to time.Time) ([]model.AuditLogEntry, error)
}

type DirectoryStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
}

type ReceiptGenerator interface {
	Generate(receipt model.PaymentReceipt) ([]byte, error)
}

type TrailExporter interface {
	Generate(export model.AuditTrailExport) ([]byte, error)
}

type ContractService struct {
	contracts ContractStore
	edits     EditStore
	audits    AuditStore
	directory DirectoryStore
	receipts  ReceiptGenerator
	exporter  TrailExporter

	vatPercent      decimal.Decimal
	securityDeposit decimal.Decimal
	currency        string

	log zerolog.Logger
	now func() time.Time
}

func NewContractService(
	contracts ContractStore,
	edits EditStore,
	audits AuditStore,
	directory DirectoryStore,
	receipts ReceiptGenerator,
	exporter TrailExporter,
	cfg *config.Config,
	log zerolog.Logger,
) *ContractService {
	return &ContractService{
		contracts:       contracts,
		edits:           edits,
		audits:          audits,
		directory:       directory,
		receipts:        receipts,
		exporter:        exporter,
		vatPercent:      cfg.VATDefault(),
		securityDeposit: cfg.SecurityDeposit(),
		currency:        cfg.Contracts.Currency,
		log:             log,
		now:             time.Now,
	}
}

// ContractTermsInput carries the caller-settable rental terms. Derived
// money fields are not representable here; the calculator owns them.
type ContractTermsInput struct {
	CustomerID   uuid.UUID
	VehicleID    uuid.UUID
	HirerType    model.HirerType
	SponsorID    *uuid.UUID
	CompanyID    *uuid.UUID
	RentalType   model.RentalType
	StartDate    time.Time
	EndDate      time.Time
	Rate         decimal.Decimal
	MileageLimit int64
	ExtraKmRate  decimal.Decimal
}

type CreateContractInput struct {
	Terms     ContractTermsInput
	Principal model.Principal
	IP        string
}

func (s *ContractService) CreateContract(ctx context.Context, input CreateContractInput) (*model.Contract, error) {
	if err := validateTerms(input.Terms); err != nil {
		return nil, err
	}
	if err := s.checkDirectory(ctx, input.Terms.CustomerID, input.Terms.VehicleID); err != nil {
		return nil, err
	}

	quote := finance.DeriveQuote(input.Terms.RentalType, input.Terms.Rate, input.Terms.StartDate, input.Terms.EndDate, s.vatPercent)

	contract := &model.Contract{
		CustomerID:      input.Terms.CustomerID,
		VehicleID:       input.Terms.VehicleID,
		HirerType:       input.Terms.HirerType,
		SponsorID:       input.Terms.SponsorID,
		CompanyID:       input.Terms.CompanyID,
		RentalType:      input.Terms.RentalType,
		StartDate:       input.Terms.StartDate,
		EndDate:         input.Terms.EndDate,
		Rate:            input.Terms.Rate,
		TotalDays:       quote.TotalDays,
		MileageLimit:    input.Terms.MileageLimit,
		ExtraKmRate:     input.Terms.ExtraKmRate,
		Subtotal:        quote.Subtotal,
		VATAmount:       quote.VATAmount,
		TotalAmount:     quote.Total,
		SecurityDeposit: s.securityDeposit,
		CreatedBy:       input.Principal.UserID,
	}

	saved, err := s.contracts.Create(ctx, contract)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, input.Principal.UserID, model.AuditContractCreated, &saved.ID,
		fmt.Sprintf("contract %d created as draft", saved.ContractNumber), input.IP)
	return saved, nil
}

type EditContractInput struct {
	ContractID uuid.UUID
	Terms      ContractTermsInput
	Reason     string
	Principal  model.Principal
	IP         string
}

func (s *ContractService) EditContract(ctx context.Context, input EditContractInput) (*model.Contract, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, ErrEditReasonRequired
	}
	if err := validateTerms(input.Terms); err != nil {
		return nil, err
	}

	current, err := s.getContract(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if !current.Editable() {
		return nil, fmt.Errorf("%w: status is %s", ErrContractLocked, current.Status)
	}
	if err := s.checkDirectory(ctx, input.Terms.CustomerID, input.Terms.VehicleID); err != nil {
		return nil, err
	}

	quote := finance.DeriveQuote(input.Terms.RentalType, input.Terms.Rate, input.Terms.StartDate, input.Terms.EndDate, s.vatPercent)

	updated := *current
	updated.CustomerID = input.Terms.CustomerID
	updated.VehicleID = input.Terms.VehicleID
	updated.HirerType = input.Terms.HirerType
	updated.SponsorID = input.Terms.SponsorID
	updated.CompanyID = input.Terms.CompanyID
	updated.RentalType = input.Terms.RentalType
	updated.StartDate = input.Terms.StartDate
	updated.EndDate = input.Terms.EndDate
	updated.Rate = input.Terms.Rate
	updated.TotalDays = quote.TotalDays
	updated.MileageLimit = input.Terms.MileageLimit
	updated.ExtraKmRate = input.Terms.ExtraKmRate
	updated.Subtotal = quote.Subtotal
	updated.VATAmount = quote.VATAmount
	updated.TotalAmount = quote.Total

	before, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("snapshot before: %w", err)
	}
	after, err := json.Marshal(&updated)
	if err != nil {
		return nil, fmt.Errorf("snapshot after: %w", err)
	}

	edit := &model.ContractEdit{
		ContractID:   current.ID,
		EditedBy:     input.Principal.UserID,
		EditReason:   strings.TrimSpace(input.Reason),
		FieldsBefore: string(before),
		FieldsAfter:  string(after),
		IPAddress:    input.IP,
	}

	affected, err := s.contracts.UpdateDraft(ctx, &updated, edit)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	s.audit(ctx, input.Principal.UserID, model.AuditContractEdited, &current.ID,
		fmt.Sprintf("contract %d edited: %s", current.ContractNumber, edit.EditReason), input.IP)
	return s.getContract(ctx, current.ID)
}

func (s *ContractService) ConfirmContract(ctx context.Context, id uuid.UUID, principal model.Principal, ip string) (*model.Contract, error) {
	if !principal.CanManageLifecycle() {
		return nil, ErrPermissionDenied
	}

	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Disabled {
		return nil, fmt.Errorf("%w: contract is disabled", ErrInvalidTransition)
	}
	if !model.CanTransition(current.Status, model.StatusConfirmed) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, model.StatusConfirmed)
	}

	// Fail fast before taking the blocking status; the store repeats the
	// same guard inside the confirm statement, so two overlapping drafts
	// confirmed concurrently cannot both commit.
	available, err := s.contracts.VehicleAvailable(ctx, current.VehicleID, current.StartDate, current.EndDate, &current.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrVehicleUnavailable
	}

	affected, err := s.contracts.Confirm(ctx, id, principal.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		stillAvailable, availErr := s.contracts.VehicleAvailable(ctx, current.VehicleID, current.StartDate, current.EndDate, &current.ID)
		if availErr == nil && !stillAvailable {
			return nil, ErrVehicleUnavailable
		}
		return nil, ErrStateConflict
	}

	s.audit(ctx, principal.UserID, model.AuditContractConfirmed, &id,
		fmt.Sprintf("contract %d confirmed", current.ContractNumber), ip)
	return s.getContract(ctx, id)
}

type ActivateContractInput struct {
	ContractID       uuid.UUID
	OdometerStart    int64
	FuelLevelStart   string
	VehicleCondition string
	Principal        model.Principal
	IP               string
}

func (s *ContractService) ActivateContract(ctx context.Context, input ActivateContractInput) (*model.Contract, error) {
	if !input.Principal.CanManageLifecycle() {
		return nil, ErrPermissionDenied
	}
	if input.OdometerStart < 0 {
		return nil, fmt.Errorf("%w: odometer_start must not be negative", ErrInvalidInput)
	}

	current, err := s.getContract(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if current.Disabled {
		return nil, fmt.Errorf("%w: contract is disabled", ErrInvalidTransition)
	}
	if !model.CanTransition(current.Status, model.StatusActive) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, model.StatusActive)
	}
	if err := s.checkVehicle(ctx, current.VehicleID); err != nil {
		return nil, err
	}

	available, err := s.contracts.VehicleAvailable(ctx, current.VehicleID, current.StartDate, current.EndDate, &current.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrVehicleUnavailable
	}

	// The store repeats the availability guard inside the status update,
	// so two overlapping activations cannot both commit.
	affected, err := s.contracts.Activate(ctx, input.ContractID, input.Principal.UserID, s.now(),
		input.OdometerStart, input.FuelLevelStart, input.VehicleCondition)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		stillAvailable, availErr := s.contracts.VehicleAvailable(ctx, current.VehicleID, current.StartDate, current.EndDate, &current.ID)
		if availErr == nil && !stillAvailable {
			return nil, ErrVehicleUnavailable
		}
		return nil, ErrStateConflict
	}

	s.audit(ctx, input.Principal.UserID, model.AuditContractActivated, &input.ContractID,
		fmt.Sprintf("contract %d activated, odometer %d", current.ContractNumber, input.OdometerStart), input.IP)
	return s.getContract(ctx, input.ContractID)
}

type CompleteContractInput struct {
	ContractID   uuid.UUID
	OdometerEnd  int64
	FuelLevelEnd string
	FuelCharge   decimal.Decimal
	DamageCharge decimal.Decimal
	OtherCharges decimal.Decimal
	Principal    model.Principal
	IP           string
}

func (s *ContractService) CompleteContract(ctx context.Context, input CompleteContractInput) (*model.Contract, error) {
	if !input.Principal.CanManageLifecycle() {
		return nil, ErrPermissionDenied
	}
	if input.FuelCharge.IsNegative() || input.DamageCharge.IsNegative() || input.OtherCharges.IsNegative() {
		return nil, fmt.Errorf("%w: charges must not be negative", ErrInvalidInput)
	}
	if strings.TrimSpace(input.FuelLevelEnd) == "" {
		return nil, fmt.Errorf("%w: fuel_level_end is required", ErrInvalidInput)
	}

	current, err := s.getContract(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if current.Disabled {
		return nil, fmt.Errorf("%w: contract is disabled", ErrInvalidTransition)
	}
	if !model.CanTransition(current.Status, model.StatusCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, model.StatusCompleted)
	}
	if current.OdometerStart != nil && input.OdometerEnd < *current.OdometerStart {
		return nil, fmt.Errorf("%w: odometer_end is below odometer_start", ErrInvalidInput)
	}

	settlement := finance.DeriveSettlement(current, input.OdometerEnd,
		input.FuelCharge.Round(2), input.DamageCharge.Round(2), input.OtherCharges.Round(2))

	affected, err := s.contracts.Complete(ctx, input.ContractID, input.Principal.UserID, s.now(),
		input.OdometerEnd, input.FuelLevelEnd,
		settlement.ExtraKmDriven, settlement.ExtraKmCharge,
		input.FuelCharge.Round(2), input.DamageCharge.Round(2), input.OtherCharges.Round(2),
		settlement.TotalExtraCharges, settlement.OutstandingBalance)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	s.audit(ctx, input.Principal.UserID, model.AuditContractCompleted, &input.ContractID,
		fmt.Sprintf("contract %d completed, outstanding %s %s", current.ContractNumber, settlement.OutstandingBalance.StringFixed(2), s.currency), input.IP)
	return s.getContract(ctx, input.ContractID)
}

func (s *ContractService) CloseContract(ctx context.Context, id uuid.UUID, principal model.Principal, ip string) (*model.Contract, error) {
	if !principal.CanManageLifecycle() {
		return nil, ErrPermissionDenied
	}

	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Disabled {
		return nil, fmt.Errorf("%w: contract is disabled", ErrInvalidTransition)
	}
	if !model.CanTransition(current.Status, model.StatusClosed) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, model.StatusClosed)
	}
	if !current.CanClose() {
		return nil, fmt.Errorf("%w: outstanding balance %s %s is unsettled", ErrInvalidTransition,
			current.OutstandingBalance.StringFixed(2), s.currency)
	}

	affected, err := s.contracts.Close(ctx, id, principal.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	s.audit(ctx, principal.UserID, model.AuditContractClosed, &id,
		fmt.Sprintf("contract %d closed", current.ContractNumber), ip)
	return s.getContract(ctx, id)
}

func (s *ContractService) RecordDeposit(ctx context.Context, id uuid.UUID, method string, principal model.Principal, ip string) (*model.Contract, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	}

	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Disabled {
		return nil, fmt.Errorf("%w: contract is disabled", ErrInvalidTransition)
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: contract is %s", ErrInvalidTransition, current.Status)
	}
	if current.DepositPaid {
		return nil, fmt.Errorf("%w: deposit already recorded", ErrInvalidTransition)
	}

	affected, err := s.contracts.RecordDeposit(ctx, id, method, s.now(), current.PaymentStatus.AfterDeposit())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	s.audit(ctx, principal.UserID, model.AuditDepositRecorded, &id,
		fmt.Sprintf("deposit %s %s received via %s", current.SecurityDeposit.StringFixed(2), s.currency, method), ip)
	return s.getContract(ctx, id)
}

func (s *ContractService) RecordFinalPayment(ctx context.Context, id uuid.UUID, method string, principal model.Principal, ip string) (*model.Contract, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	}

	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Disabled {
		return nil, fmt.Errorf("%w: contract is disabled", ErrInvalidTransition)
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: contract is %s", ErrInvalidTransition, current.Status)
	}
	if current.FinalPaymentReceived {
		return nil, fmt.Errorf("%w: final payment already recorded", ErrInvalidTransition)
	}
	if !model.CanTransitionPayment(current.PaymentStatus, model.PaymentPaid) {
		return nil, fmt.Errorf("%w: payment status is %s", ErrInvalidTransition, current.PaymentStatus)
	}

	affected, err := s.contracts.RecordFinalPayment(ctx, id, method, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	s.audit(ctx, principal.UserID, model.AuditFinalPaymentRecorded, &id,
		fmt.Sprintf("final payment received via %s, balance settled", method), ip)
	return s.getContract(ctx, id)
}

func (s *ContractService) RecordRefund(ctx context.Context, id uuid.UUID, principal model.Principal, ip string) (*model.Contract, error) {
	if !principal.CanManageLifecycle() {
		return nil, ErrPermissionDenied
	}

	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.StatusClosed {
		return nil, fmt.Errorf("%w: refund requires a closed contract, status is %s", ErrInvalidTransition, current.Status)
	}
	if !current.DepositPaid {
		return nil, fmt.Errorf("%w: no deposit was paid", ErrInvalidTransition)
	}
	if current.DepositRefunded {
		return nil, fmt.Errorf("%w: deposit already refunded", ErrInvalidTransition)
	}
	if !model.CanTransitionPayment(current.PaymentStatus, model.PaymentRefunded) {
		return nil, fmt.Errorf("%w: payment status is %s", ErrInvalidTransition, current.PaymentStatus)
	}

	affected, err := s.contracts.RecordRefund(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	s.audit(ctx, principal.UserID, model.AuditDepositRefunded, &id,
		fmt.Sprintf("deposit %s %s refunded", current.SecurityDeposit.StringFixed(2), s.currency), ip)
	return s.getContract(ctx, id)
}

func (s *ContractService) SetContractDisabled(ctx context.Context, id uuid.UUID, disabled bool, principal model.Principal, ip string) (*model.Contract, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Disabled == disabled {
		return nil, fmt.Errorf("%w: contract disabled=%t already", ErrInvalidTransition, disabled)
	}

	affected, err := s.contracts.SetDisabled(ctx, id, principal.UserID, s.now(), disabled)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrStateConflict
	}

	action := model.AuditContractEnabled
	if disabled {
		action = model.AuditContractDisabled
	}
	s.audit(ctx, principal.UserID, action, &id,
		fmt.Sprintf("contract %d disabled=%t", current.ContractNumber, disabled), ip)
	return s.getContract(ctx, id)
}

func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.getContract(ctx, id)
}

func (s *ContractService) ListContractsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.Contract, error) {
	return s.contracts.ListByVehicle(ctx, vehicleID)
}

func (s *ContractService) ListEdits(ctx context.Context, contractID uuid.UUID) ([]model.ContractEdit, error) {
	if _, err := s.getContract(ctx, contractID); err != nil {
		return nil, err
	}
	return s.edits.ListByContract(ctx, contractID)
}

func (s *ContractService) ListAuditTrail(ctx context.Context, contractID uuid.UUID) ([]model.AuditLogEntry, error) {
	if _, err := s.getContract(ctx, contractID); err != nil {
		return nil, err
	}
	return s.audits.ListByContract(ctx, contractID)
}

// IsVehicleAvailable exposes the availability check for quote-time use.
func (s *ContractService) IsVehicleAvailable(ctx context.Context, vehicleID uuid.UUID, startDate, endDate time.Time, excludeContractID *uuid.UUID) (bool, error) {
	if endDate.Before(startDate) {
		return false, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	if err := s.checkVehicle(ctx, vehicleID); err != nil {
		return false, err
	}
	return s.contracts.VehicleAvailable(ctx, vehicleID, startDate, endDate, excludeContractID)
}

type DocumentResult struct {
	FileName string
	Content  []byte
}

func (s *ContractService) PrintReceipt(ctx context.Context, id uuid.UUID, kind model.ReceiptKind, principal model.Principal, ip string) (*DocumentResult, error) {
	current, err := s.getContract(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt := model.PaymentReceipt{
		Kind:     kind,
		Contract: *current,
		Currency: s.currency,
	}
	switch kind {
	case model.ReceiptDeposit:
		if !current.DepositPaid {
			return nil, fmt.Errorf("%w: no deposit recorded", ErrInvalidInput)
		}
		receipt.Method = derefString(current.DepositPaidMethod)
		receipt.PaidAt = derefTime(current.DepositPaidDate)
	case model.ReceiptFinalPayment:
		if !current.FinalPaymentReceived {
			return nil, fmt.Errorf("%w: no final payment recorded", ErrInvalidInput)
		}
		receipt.Method = derefString(current.FinalPaymentMethod)
		receipt.PaidAt = derefTime(current.FinalPaymentDate)
	default:
		return nil, fmt.Errorf("%w: unknown receipt kind", ErrInvalidInput)
	}

	customer, err := s.directory.GetCustomer(ctx, current.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: customer", ErrNotFound)
		}
		return nil, err
	}
	vehicle, err := s.directory.GetVehicle(ctx, current.VehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: vehicle", ErrNotFound)
		}
		return nil, err
	}
	receipt.Customer = *customer
	receipt.Vehicle = *vehicle

	content, err := s.receipts.Generate(receipt)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, principal.UserID, model.AuditReceiptPrinted, &id,
		fmt.Sprintf("%s receipt printed for contract %d", strings.ToLower(string(kind)), current.ContractNumber), ip)

	fileName := fmt.Sprintf("receipt-%s-%d.pdf", strings.ToLower(string(kind)), current.ContractNumber)
	return &DocumentResult{FileName: fileName, Content: content}, nil
}

func (s *ContractService) ExportAuditTrail(ctx context.Context, from, to time.Time, principal model.Principal, ip string) (*DocumentResult, error) {
	if !principal.CanManageLifecycle() {
		return nil, ErrPermissionDenied
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: invalid period", ErrInvalidInput)
	}

	// Bounds are calendar dates; a timestamp inside a day means that day.
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: invalid period", ErrInvalidInput)
	}

	entries, err := s.audits.ListForPeriod(ctx, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	content, err := s.exporter.Generate(model.AuditTrailExport{
		PeriodStart: from,
		PeriodEnd:   to,
		Entries:     entries,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, principal.UserID, model.AuditTrailExported, nil,
		fmt.Sprintf("audit trail exported, %d entries", len(entries)), ip)

	fileName := fmt.Sprintf("audit-trail-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	return &DocumentResult{FileName: fileName, Content: content}, nil
}

// SweepOverdue flags active contracts whose rental window has ended. The
// lifecycle has no overdue state, so the flag is an audit entry only.
func (s *ContractService) SweepOverdue(ctx context.Context) (int, error) {
	overdue, err := s.contracts.ListOverdueActive(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for i := range overdue {
		c := overdue[i]
		s.audit(ctx, uuid.Nil, model.AuditOverdueFlagged, &c.ID,
			fmt.Sprintf("contract %d still active past end date %s", c.ContractNumber, c.EndDate.Format("2006-01-02")), "")
	}
	return len(overdue), nil
}

func (s *ContractService) getContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) checkDirectory(ctx context.Context, customerID, vehicleID uuid.UUID) error {
	customer, err := s.directory.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: customer", ErrNotFound)
		}
		return err
	}
	if customer.Disabled {
		return fmt.Errorf("%w: customer is disabled", ErrInvalidInput)
	}
	return s.checkVehicle(ctx, vehicleID)
}

func (s *ContractService) checkVehicle(ctx context.Context, vehicleID uuid.UUID) error {
	vehicle, err := s.directory.GetVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: vehicle", ErrNotFound)
		}
		return err
	}
	if vehicle.Disabled {
		return fmt.Errorf("%w: vehicle is disabled", ErrInvalidInput)
	}
	return nil
}

// audit appends one entry per successful operation. The trail is
// best-effort: a write failure is logged loudly but never fails the
// transition it describes.
func (s *ContractService) audit(ctx context.Context, userID uuid.UUID, action model.AuditAction, contractID *uuid.UUID, details, ip string) {
	entry := &model.AuditLogEntry{
		UserID:     userID,
		Action:     action,
		ContractID: contractID,
		Details:    details,
		IPAddress:  ip,
	}
	if err := s.audits.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", string(action)).Msg("audit write failed")
	}
}

func validateTerms(terms ContractTermsInput) error {
	if terms.CustomerID == uuid.Nil {
		return fmt.Errorf("%w: customer_id is required", ErrInvalidInput)
	}
	if terms.VehicleID == uuid.Nil {
		return fmt.Errorf("%w: vehicle_id is required", ErrInvalidInput)
	}
	switch terms.HirerType {
	case model.HirerDirect:
	case model.HirerWithSponsor:
		if terms.SponsorID == nil {
			return fmt.Errorf("%w: sponsor_id is required for hirer type %s", ErrInvalidInput, terms.HirerType)
		}
	case model.HirerFromCompany:
		if terms.CompanyID == nil {
			return fmt.Errorf("%w: company_id is required for hirer type %s", ErrInvalidInput, terms.HirerType)
		}
	default:
		return fmt.Errorf("%w: invalid hirer type", ErrInvalidInput)
	}
	switch terms.RentalType {
	case model.RentalDaily, model.RentalWeekly, model.RentalMonthly:
	default:
		return fmt.Errorf("%w: invalid rental type", ErrInvalidInput)
	}
	if terms.StartDate.IsZero() || terms.EndDate.IsZero() {
		return fmt.Errorf("%w: rental dates are required", ErrInvalidInput)
	}
	if terms.EndDate.Before(terms.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	if !terms.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidInput)
	}
	if terms.MileageLimit < 0 {
		return fmt.Errorf("%w: mileage_limit must not be negative", ErrInvalidInput)
	}
	if terms.ExtraKmRate.IsNegative() {
		return fmt.Errorf("%w: extra_km_rate must not be negative", ErrInvalidInput)
	}
	return nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
