package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the closed set of recordable lifecycle and payment
// events. Free-text actions are deliberately not representable.
type AuditAction string

const (
	AuditContractCreated      AuditAction = "CONTRACT_CREATED"
	AuditContractEdited       AuditAction = "CONTRACT_EDITED"
	AuditContractConfirmed    AuditAction = "CONTRACT_CONFIRMED"
	AuditContractActivated    AuditAction = "CONTRACT_ACTIVATED"
	AuditContractCompleted    AuditAction = "CONTRACT_COMPLETED"
	AuditContractClosed       AuditAction = "CONTRACT_CLOSED"
	AuditContractDisabled     AuditAction = "CONTRACT_DISABLED"
	AuditContractEnabled      AuditAction = "CONTRACT_ENABLED"
	AuditDepositRecorded      AuditAction = "DEPOSIT_RECORDED"
	AuditFinalPaymentRecorded AuditAction = "FINAL_PAYMENT_RECORDED"
	AuditDepositRefunded      AuditAction = "DEPOSIT_REFUNDED"
	AuditReceiptPrinted       AuditAction = "RECEIPT_PRINTED"
	AuditTrailExported        AuditAction = "TRAIL_EXPORTED"
	AuditOverdueFlagged       AuditAction = "OVERDUE_FLAGGED"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditContractCreated, AuditContractEdited, AuditContractConfirmed,
		AuditContractActivated, AuditContractCompleted, AuditContractClosed,
		AuditContractDisabled, AuditContractEnabled, AuditDepositRecorded,
		AuditFinalPaymentRecorded, AuditDepositRefunded, AuditReceiptPrinted,
		AuditTrailExported, AuditOverdueFlagged:
		return true
	}
	return false
}

// AuditLogEntry is one append-only row per lifecycle or payment event.
// ContractID is nullable for entries that do not concern a contract.
type AuditLogEntry struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	Action     AuditAction `json:"action"`
	ContractID *uuid.UUID  `json:"contract_id,omitempty"`
	Details    string      `json:"details"`
	IPAddress  string      `json:"ip_address"`
	CreatedAt  time.Time   `json:"created_at"`
}
