package model

import "time"

type ReceiptKind string

const (
	ReceiptDeposit      ReceiptKind = "DEPOSIT"
	ReceiptFinalPayment ReceiptKind = "FINAL_PAYMENT"
)

// PaymentReceipt is everything the receipt generator needs to render one
// payment event.
type PaymentReceipt struct {
	Kind     ReceiptKind
	Contract Contract
	Customer Customer
	Vehicle  Vehicle
	Currency string
	Method   string
	PaidAt   time.Time
}

// AuditTrailExport is the input of the spreadsheet exporter.
type AuditTrailExport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Entries     []AuditLogEntry
}
