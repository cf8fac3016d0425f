package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	statuses := []ContractStatus{StatusDraft, StatusConfirmed, StatusActive, StatusCompleted, StatusClosed, StatusFinalized}

	legal := map[ContractStatus]ContractStatus{
		StatusDraft:     StatusConfirmed,
		StatusConfirmed: StatusActive,
		StatusActive:    StatusCompleted,
		StatusCompleted: StatusClosed,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := legal[from] == to
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionRejectsSelf(t *testing.T) {
	// confirming a confirmed contract must fail, not no-op
	assert.False(t, CanTransition(StatusConfirmed, StatusConfirmed))
	assert.False(t, CanTransition(StatusDraft, StatusDraft))
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(ContractStatus("BOGUS"), StatusConfirmed))
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusClosed.Terminal())
	assert.True(t, StatusFinalized.Terminal())
	assert.False(t, StatusDraft.Terminal())
	assert.False(t, StatusCompleted.Terminal())
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPartial))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPartial, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPaid, PaymentRefunded))

	assert.False(t, CanTransitionPayment(PaymentPartial, PaymentPending))
	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentPartial))
	assert.False(t, CanTransitionPayment(PaymentRefunded, PaymentPaid))
	assert.False(t, CanTransitionPayment(PaymentPending, PaymentRefunded))
}

func TestAfterDeposit(t *testing.T) {
	assert.Equal(t, PaymentPartial, PaymentPending.AfterDeposit())
	assert.Equal(t, PaymentPartial, PaymentPartial.AfterDeposit())
	assert.Equal(t, PaymentPaid, PaymentPaid.AfterDeposit())
}

func TestEditable(t *testing.T) {
	c := &Contract{Status: StatusDraft}
	assert.True(t, c.Editable())

	c.Disabled = true
	assert.False(t, c.Editable())

	c = &Contract{Status: StatusConfirmed}
	assert.False(t, c.Editable())

	c = &Contract{Status: StatusFinalized}
	assert.False(t, c.Editable())
}

func TestCanClose(t *testing.T) {
	c := &Contract{OutstandingBalance: decimal.NewFromInt(415)}
	assert.False(t, c.CanClose())

	c.FinalPaymentReceived = true
	assert.True(t, c.CanClose())

	c = &Contract{OutstandingBalance: decimal.Zero}
	assert.True(t, c.CanClose())
}

func TestAuditActionValid(t *testing.T) {
	assert.True(t, AuditContractCreated.Valid())
	assert.True(t, AuditOverdueFlagged.Valid())
	assert.False(t, AuditAction("login").Valid())
}
