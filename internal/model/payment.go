package model

// PaymentStatus is the payment sub-state, orthogonal to the lifecycle
// status but gated by it: deposits and final payments may be recorded any
// time before the contract is closed, refunds only after.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPartial  PaymentStatus = "PARTIAL"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

var allowedPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPartial, PaymentPaid},
	PaymentPartial:  {PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	allowed, ok := allowedPaymentTransitions[from]
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

// AfterDeposit returns the payment status after a deposit is recorded.
// A pending ledger moves to partial; paid stays paid.
func (s PaymentStatus) AfterDeposit() PaymentStatus {
	if s == PaymentPending {
		return PaymentPartial
	}
	return s
}
