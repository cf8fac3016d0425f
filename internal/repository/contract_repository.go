package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `
	id,
	contract_number,
	status,
	customer_id,
	vehicle_id,
	hirer_type,
	sponsor_id,
	company_id,
	rental_type,
	start_date,
	end_date,
	rate,
	total_days,
	mileage_limit,
	extra_km_rate,
	subtotal,
	vat_amount,
	total_amount,
	security_deposit,
	odometer_start,
	odometer_end,
	fuel_level_start,
	fuel_level_end,
	vehicle_condition,
	extra_km_driven,
	extra_km_charge,
	fuel_charge,
	damage_charge,
	other_charges,
	total_extra_charges,
	outstanding_balance,
	payment_status,
	deposit_paid,
	deposit_paid_date,
	deposit_paid_method,
	final_payment_received,
	final_payment_date,
	final_payment_method,
	deposit_refunded,
	deposit_refunded_date,
	created_by,
	created_at,
	confirmed_by,
	confirmed_at,
	activated_by,
	activated_at,
	completed_by,
	completed_at,
	closed_by,
	closed_at,
	disabled,
	disabled_by,
	disabled_at`

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

func (r *ContractRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE vehicle_id = ?
		ORDER BY created_at DESC
	`, vehicleID).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// Create allocates the next contract number and inserts the draft in one
// transaction, so two simultaneous creations can never share a number.
func (r *ContractRepository) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var number int64
		if err := tx.Raw(`
			UPDATE contract_sequence
			SET current_number = current_number + 1
			WHERE id = 1
			RETURNING current_number
		`).Scan(&number).Error; err != nil {
			return err
		}

		return tx.Raw(`
			INSERT INTO contracts (
				contract_number,
				status,
				customer_id,
				vehicle_id,
				hirer_type,
				sponsor_id,
				company_id,
				rental_type,
				start_date,
				end_date,
				rate,
				total_days,
				mileage_limit,
				extra_km_rate,
				subtotal,
				vat_amount,
				total_amount,
				security_deposit,
				payment_status,
				created_by
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING `+contractColumns+`
		`,
			number,
			model.StatusDraft,
			contract.CustomerID,
			contract.VehicleID,
			contract.HirerType,
			contract.SponsorID,
			contract.CompanyID,
			contract.RentalType,
			contract.StartDate,
			contract.EndDate,
			contract.Rate,
			contract.TotalDays,
			contract.MileageLimit,
			contract.ExtraKmRate,
			contract.Subtotal,
			contract.VATAmount,
			contract.TotalAmount,
			contract.SecurityDeposit,
			model.PaymentPending,
			contract.CreatedBy,
		).Scan(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateDraft rewrites the editable fields of a draft and appends the edit
// snapshot in the same transaction: either both land or neither does. The
// status guard in the WHERE clause keeps a concurrently confirmed contract
// untouched.
func (r *ContractRepository) UpdateDraft(ctx context.Context, contract *model.Contract, edit *model.ContractEdit) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
		UPDATE contracts
		SET
			customer_id = ?,
			vehicle_id = ?,
			hirer_type = ?,
			sponsor_id = ?,
			company_id = ?,
			rental_type = ?,
			start_date = ?,
			end_date = ?,
			rate = ?,
			total_days = ?,
			mileage_limit = ?,
			extra_km_rate = ?,
			subtotal = ?,
			vat_amount = ?,
			total_amount = ?,
			security_deposit = ?
		WHERE id = ? AND status = ? AND NOT disabled
		`,
			contract.CustomerID,
			contract.VehicleID,
			contract.HirerType,
			contract.SponsorID,
			contract.CompanyID,
			contract.RentalType,
			contract.StartDate,
			contract.EndDate,
			contract.Rate,
			contract.TotalDays,
			contract.MileageLimit,
			contract.ExtraKmRate,
			contract.Subtotal,
			contract.VATAmount,
			contract.TotalAmount,
			contract.SecurityDeposit,
			contract.ID,
			model.StatusDraft,
		)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		if affected == 0 {
			return nil
		}

		return tx.Exec(`
			INSERT INTO contract_edits (
				contract_id,
				edited_by,
				edit_reason,
				fields_before,
				fields_after,
				ip_address
			) VALUES (?, ?, ?, ?, ?, ?)
		`,
			edit.ContractID,
			edit.EditedBy,
			edit.EditReason,
			edit.FieldsBefore,
			edit.FieldsAfter,
			edit.IPAddress,
		).Error
	})
	return affected, err
}

// Confirm is a conditional update guarded on the DRAFT predecessor and on
// vehicle exclusivity: confirmation takes a blocking status, so the same
// NOT EXISTS overlap guard as Activate runs in the statement itself. Two
// overlapping drafts confirmed concurrently cannot both commit. Zero rows
// affected means a concurrent transition or an overlapping blocker won.
func (r *ContractRepository) Confirm(ctx context.Context, id, actor uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts c
		SET status = ?, confirmed_by = ?, confirmed_at = ?
		WHERE c.id = ? AND c.status = ? AND NOT c.disabled AND c.confirmed_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM contracts o
				WHERE o.vehicle_id = c.vehicle_id
					AND o.id <> c.id
					AND NOT o.disabled
					AND o.status IN (?, ?, ?)
					AND NOT (o.end_date < c.start_date OR o.start_date > c.end_date)
			)
	`, model.StatusConfirmed, actor, at, id, model.StatusDraft,
		model.StatusConfirmed, model.StatusActive, model.StatusCompleted)
	return result.RowsAffected, result.Error
}

// Activate flips CONFIRMED to ACTIVE only when no other blocking contract
// overlaps the vehicle's window. The NOT EXISTS guard runs in the same
// statement as the status change, so two overlapping activations cannot
// both commit.
func (r *ContractRepository) Activate(ctx context.Context, id, actor uuid.UUID, at time.Time, odometerStart int64, fuelLevelStart, vehicleCondition string) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts c
		SET status = ?, activated_by = ?, activated_at = ?,
			odometer_start = ?, fuel_level_start = ?, vehicle_condition = ?
		WHERE c.id = ? AND c.status = ? AND NOT c.disabled AND c.activated_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM contracts o
				WHERE o.vehicle_id = c.vehicle_id
					AND o.id <> c.id
					AND NOT o.disabled
					AND o.status IN (?, ?, ?)
					AND NOT (o.end_date < c.start_date OR o.start_date > c.end_date)
			)
	`, model.StatusActive, actor, at, odometerStart, fuelLevelStart, vehicleCondition,
		id, model.StatusConfirmed,
		model.StatusConfirmed, model.StatusActive, model.StatusCompleted)
	return result.RowsAffected, result.Error
}

// Complete writes the settlement derived by the calculator together with
// the status change.
func (r *ContractRepository) Complete(
	ctx context.Context,
	id, actor uuid.UUID,
	at time.Time,
	odometerEnd int64,
	fuelLevelEnd string,
	extraKmDriven int64,
	extraKmCharge, fuelCharge, damageCharge, otherCharges, totalExtraCharges, outstandingBalance decimal.Decimal,
) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET status = ?, completed_by = ?, completed_at = ?,
			odometer_end = ?, fuel_level_end = ?,
			extra_km_driven = ?, extra_km_charge = ?,
			fuel_charge = ?, damage_charge = ?, other_charges = ?,
			total_extra_charges = ?, outstanding_balance = ?
		WHERE id = ? AND status = ? AND NOT disabled AND completed_at IS NULL
	`, model.StatusCompleted, actor, at,
		odometerEnd, fuelLevelEnd,
		extraKmDriven, extraKmCharge,
		fuelCharge, damageCharge, otherCharges,
		totalExtraCharges, outstandingBalance,
		id, model.StatusActive)
	return result.RowsAffected, result.Error
}

// Close re-applies the closure gate in SQL so a payment state that changed
// after the service's read cannot slip through.
func (r *ContractRepository) Close(ctx context.Context, id, actor uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET status = ?, closed_by = ?, closed_at = ?, payment_status = ?
		WHERE id = ? AND status = ? AND NOT disabled AND closed_at IS NULL
			AND (outstanding_balance = 0 OR final_payment_received)
	`, model.StatusClosed, actor, at, model.PaymentPaid,
		id, model.StatusCompleted)
	return result.RowsAffected, result.Error
}

func (r *ContractRepository) RecordDeposit(ctx context.Context, id uuid.UUID, method string, at time.Time, newStatus model.PaymentStatus) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET deposit_paid = TRUE, deposit_paid_date = ?, deposit_paid_method = ?, payment_status = ?
		WHERE id = ? AND NOT deposit_paid AND status NOT IN (?, ?) AND NOT disabled
	`, at, method, newStatus, id, model.StatusClosed, model.StatusFinalized)
	return result.RowsAffected, result.Error
}

func (r *ContractRepository) RecordFinalPayment(ctx context.Context, id uuid.UUID, method string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET final_payment_received = TRUE, final_payment_date = ?, final_payment_method = ?,
			outstanding_balance = 0, payment_status = ?
		WHERE id = ? AND NOT final_payment_received AND status NOT IN (?, ?) AND NOT disabled
	`, at, method, model.PaymentPaid, id, model.StatusClosed, model.StatusFinalized)
	return result.RowsAffected, result.Error
}

func (r *ContractRepository) RecordRefund(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET deposit_refunded = TRUE, deposit_refunded_date = ?, payment_status = ?
		WHERE id = ? AND status = ? AND deposit_paid AND NOT deposit_refunded
	`, at, model.PaymentRefunded, id, model.StatusClosed)
	return result.RowsAffected, result.Error
}

func (r *ContractRepository) SetDisabled(ctx context.Context, id, actor uuid.UUID, at time.Time, disabled bool) (int64, error) {
	if disabled {
		result := r.db.WithContext(ctx).Exec(`
			UPDATE contracts
			SET disabled = TRUE, disabled_by = ?, disabled_at = ?
			WHERE id = ? AND NOT disabled
		`, actor, at, id)
		return result.RowsAffected, result.Error
	}
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET disabled = FALSE, disabled_by = NULL, disabled_at = NULL
		WHERE id = ? AND disabled
	`, id)
	return result.RowsAffected, result.Error
}

// VehicleAvailable runs the overlap test against other contracts holding a
// blocking status. Used fail-fast at confirm; the confirm and activate
// updates repeat the same guard inside their own statements.
func (r *ContractRepository) VehicleAvailable(ctx context.Context, vehicleID uuid.UUID, startDate, endDate time.Time, excludeContractID *uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM contracts
		WHERE vehicle_id = ?
			AND NOT disabled
			AND status IN (?, ?, ?)
			AND NOT (end_date < ? OR start_date > ?)
	`
	args := []interface{}{
		vehicleID,
		model.StatusConfirmed, model.StatusActive, model.StatusCompleted,
		startDate, endDate,
	}
	if excludeContractID != nil {
		query += " AND id <> ?"
		args = append(args, *excludeContractID)
	}

	var count int64
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// ListOverdueActive returns active contracts whose rental window has
// already ended. Consumed by the nightly sweep.
func (r *ContractRepository) ListOverdueActive(ctx context.Context, asOf time.Time) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE status = ? AND NOT disabled AND end_date < ?
		ORDER BY end_date ASC
	`, model.StatusActive, asOf).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}
