package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	StatusDraft     ContractStatus = "DRAFT"
	StatusConfirmed ContractStatus = "CONFIRMED"
	StatusActive    ContractStatus = "ACTIVE"
	StatusCompleted ContractStatus = "COMPLETED"
	StatusClosed    ContractStatus = "CLOSED"

	// StatusFinalized is a legacy terminal status that still exists on old
	// rows. It is never written by this service: it locks the contract the
	// same way CLOSED does but is not part of the lifecycle graph below.
	StatusFinalized ContractStatus = "FINALIZED"
)

type RentalType string

const (
	RentalDaily   RentalType = "DAILY"
	RentalWeekly  RentalType = "WEEKLY"
	RentalMonthly RentalType = "MONTHLY"
)

type HirerType string

const (
	HirerDirect      HirerType = "DIRECT"
	HirerWithSponsor HirerType = "WITH_SPONSOR"
	HirerFromCompany HirerType = "FROM_COMPANY"
)

// allowedTransitions is the lifecycle as a directed graph. Every event has
// exactly one legal predecessor; CLOSED and FINALIZED are terminal.
var allowedTransitions = map[ContractStatus][]ContractStatus{
	StatusDraft:     {StatusConfirmed},
	StatusConfirmed: {StatusActive},
	StatusActive:    {StatusCompleted},
	StatusCompleted: {StatusClosed},
	StatusClosed:    {},
	StatusFinalized: {},
}

func CanTransition(from, to ContractStatus) bool {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// BlockingStatuses are the statuses that make a vehicle unavailable for an
// overlapping date range. Drafts, closed and disabled contracts never block.
var BlockingStatuses = []ContractStatus{StatusConfirmed, StatusActive, StatusCompleted}

func (s ContractStatus) Terminal() bool {
	return s == StatusClosed || s == StatusFinalized
}

func (s ContractStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

type Contract struct {
	ID             uuid.UUID      `json:"id"`
	ContractNumber int64          `json:"contract_number"`
	Status         ContractStatus `json:"status"`

	CustomerID uuid.UUID  `json:"customer_id"`
	VehicleID  uuid.UUID  `json:"vehicle_id"`
	HirerType  HirerType  `json:"hirer_type"`
	SponsorID  *uuid.UUID `json:"sponsor_id,omitempty"`
	CompanyID  *uuid.UUID `json:"company_id,omitempty"`

	RentalType   RentalType      `json:"rental_type"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	Rate         decimal.Decimal `json:"rate"`
	TotalDays    int             `json:"total_days"`
	MileageLimit int64           `json:"mileage_limit"`
	ExtraKmRate  decimal.Decimal `json:"extra_km_rate"`

	Subtotal        decimal.Decimal `json:"subtotal"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`

	OdometerStart    *int64  `json:"odometer_start,omitempty"`
	OdometerEnd      *int64  `json:"odometer_end,omitempty"`
	FuelLevelStart   *string `json:"fuel_level_start,omitempty"`
	FuelLevelEnd     *string `json:"fuel_level_end,omitempty"`
	VehicleCondition *string `json:"vehicle_condition,omitempty"`

	ExtraKmDriven      int64           `json:"extra_km_driven"`
	ExtraKmCharge      decimal.Decimal `json:"extra_km_charge"`
	FuelCharge         decimal.Decimal `json:"fuel_charge"`
	DamageCharge       decimal.Decimal `json:"damage_charge"`
	OtherCharges       decimal.Decimal `json:"other_charges"`
	TotalExtraCharges  decimal.Decimal `json:"total_extra_charges"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`

	PaymentStatus        PaymentStatus `json:"payment_status"`
	DepositPaid          bool          `json:"deposit_paid"`
	DepositPaidDate      *time.Time    `json:"deposit_paid_date,omitempty"`
	DepositPaidMethod    *string       `json:"deposit_paid_method,omitempty"`
	FinalPaymentReceived bool          `json:"final_payment_received"`
	FinalPaymentDate     *time.Time    `json:"final_payment_date,omitempty"`
	FinalPaymentMethod   *string       `json:"final_payment_method,omitempty"`
	DepositRefunded      bool          `json:"deposit_refunded"`
	DepositRefundedDate  *time.Time    `json:"deposit_refunded_date,omitempty"`

	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedBy *uuid.UUID `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ActivatedBy *uuid.UUID `json:"activated_by,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CompletedBy *uuid.UUID `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ClosedBy    *uuid.UUID `json:"closed_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	Disabled   bool       `json:"disabled"`
	DisabledBy *uuid.UUID `json:"disabled_by,omitempty"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
}

// Editable reports whether contract fields may still change. Only drafts
// are editable; confirmation locks everything except the payment ledger.
func (c *Contract) Editable() bool {
	return c.Status == StatusDraft && !c.Disabled
}

// CanClose is the closure gate: settled in full, or final payment received.
func (c *Contract) CanClose() bool {
	return c.OutstandingBalance.IsZero() || c.FinalPaymentReceived
}
