// Package finance derives every monetary field of a contract. All
// functions are pure; callers never submit derived values, they submit
// inputs and the calculator is the single source of truth.
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

var (
	daysPerWeek  = decimal.NewFromInt(7)
	daysPerMonth = decimal.NewFromInt(30)
	hundred      = decimal.NewFromInt(100)
)

// TotalDays is the billable day count for a rental window: the number of
// started 24h periods, never less than one.
func TotalDays(start, end time.Time) int {
	if !end.After(start) {
		return 1
	}
	hours := end.Sub(start).Hours()
	days := int(hours / 24)
	if float64(days*24) < hours {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// Subtotal prices the rental window. Weekly and monthly rates bill started
// periods (7 and 30 days respectively), rounded up.
func Subtotal(rentalType model.RentalType, rate decimal.Decimal, totalDays int) decimal.Decimal {
	days := decimal.NewFromInt(int64(totalDays))
	var units decimal.Decimal
	switch rentalType {
	case model.RentalWeekly:
		units = days.Div(daysPerWeek).Ceil()
	case model.RentalMonthly:
		units = days.Div(daysPerMonth).Ceil()
	default:
		units = days
	}
	return rate.Mul(units).Round(2)
}

// VAT applies a percentage to the subtotal, currency-rounded.
func VAT(subtotal, vatPercent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(vatPercent).Div(hundred).Round(2)
}

func Total(subtotal, vat decimal.Decimal) decimal.Decimal {
	return subtotal.Add(vat).Round(2)
}

// ExtraKm settles mileage overage at vehicle return. Driving at or under
// the allowance yields zero; overage is charged linearly.
func ExtraKm(odometerStart, odometerEnd, mileageLimitPerDay int64, totalDays int, extraKmRate decimal.Decimal) (int64, decimal.Decimal) {
	driven := odometerEnd - odometerStart
	allowed := mileageLimitPerDay * int64(totalDays)
	extra := driven - allowed
	if extra <= 0 {
		return 0, decimal.Zero
	}
	return extra, extraKmRate.Mul(decimal.NewFromInt(extra)).Round(2)
}

// TotalExtraCharges sums the settlement charge inputs.
func TotalExtraCharges(extraKmCharge, fuelCharge, damageCharge, otherCharges decimal.Decimal) decimal.Decimal {
	return extraKmCharge.Add(fuelCharge).Add(damageCharge).Add(otherCharges).Round(2)
}

// OutstandingBalance is what the customer still owes after settlement. A
// negative result means a credit; the caller surfaces it, this function
// does not clamp.
func OutstandingBalance(totalAmount, totalExtraCharges decimal.Decimal, depositPaid bool, securityDeposit decimal.Decimal) decimal.Decimal {
	balance := totalAmount.Add(totalExtraCharges)
	if depositPaid {
		balance = balance.Sub(securityDeposit)
	}
	return balance.Round(2)
}

// Quote is the derived money triple recomputed on every draft write.
type Quote struct {
	TotalDays int
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

func DeriveQuote(rentalType model.RentalType, rate decimal.Decimal, start, end time.Time, vatPercent decimal.Decimal) Quote {
	days := TotalDays(start, end)
	subtotal := Subtotal(rentalType, rate, days)
	vat := VAT(subtotal, vatPercent)
	return Quote{
		TotalDays: days,
		Subtotal:  subtotal,
		VATAmount: vat,
		Total:     Total(subtotal, vat),
	}
}

// Settlement is the derived charge set computed exactly once, at complete.
type Settlement struct {
	ExtraKmDriven      int64
	ExtraKmCharge      decimal.Decimal
	TotalExtraCharges  decimal.Decimal
	OutstandingBalance decimal.Decimal
}

func DeriveSettlement(c *model.Contract, odometerEnd int64, fuelCharge, damageCharge, otherCharges decimal.Decimal) Settlement {
	var odometerStart int64
	if c.OdometerStart != nil {
		odometerStart = *c.OdometerStart
	}
	driven, kmCharge := ExtraKm(odometerStart, odometerEnd, c.MileageLimit, c.TotalDays, c.ExtraKmRate)
	extra := TotalExtraCharges(kmCharge, fuelCharge, damageCharge, otherCharges)
	return Settlement{
		ExtraKmDriven:      driven,
		ExtraKmCharge:      kmCharge,
		TotalExtraCharges:  extra,
		OutstandingBalance: OutstandingBalance(c.TotalAmount, extra, c.DepositPaid, c.SecurityDeposit),
	}
}
