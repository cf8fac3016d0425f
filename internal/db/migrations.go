package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('DRAFT', 'CONFIRMED', 'ACTIVE', 'COMPLETED', 'CLOSED', 'FINALIZED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'payment_status') THEN
			CREATE TYPE payment_status AS ENUM ('PENDING', 'PARTIAL', 'PAID', 'REFUNDED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL DEFAULT '',
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate VARCHAR(32) NOT NULL,
		make VARCHAR(64) NOT NULL DEFAULT '',
		model VARCHAR(64) NOT NULL DEFAULT '',
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_number BIGINT NOT NULL,
		status contract_status NOT NULL DEFAULT 'DRAFT',
		customer_id UUID NOT NULL REFERENCES customers(id),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		hirer_type VARCHAR(16) NOT NULL DEFAULT 'DIRECT',
		sponsor_id UUID,
		company_id UUID,
		rental_type VARCHAR(8) NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		rate NUMERIC(18,2) NOT NULL,
		total_days INT NOT NULL,
		mileage_limit BIGINT NOT NULL DEFAULT 0,
		extra_km_rate NUMERIC(18,2) NOT NULL DEFAULT 0,
		subtotal NUMERIC(18,2) NOT NULL,
		vat_amount NUMERIC(18,2) NOT NULL,
		total_amount NUMERIC(18,2) NOT NULL,
		security_deposit NUMERIC(18,2) NOT NULL DEFAULT 0,
		odometer_start BIGINT,
		odometer_end BIGINT,
		fuel_level_start VARCHAR(16),
		fuel_level_end VARCHAR(16),
		vehicle_condition TEXT,
		extra_km_driven BIGINT NOT NULL DEFAULT 0,
		extra_km_charge NUMERIC(18,2) NOT NULL DEFAULT 0,
		fuel_charge NUMERIC(18,2) NOT NULL DEFAULT 0,
		damage_charge NUMERIC(18,2) NOT NULL DEFAULT 0,
		other_charges NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_extra_charges NUMERIC(18,2) NOT NULL DEFAULT 0,
		outstanding_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		payment_status payment_status NOT NULL DEFAULT 'PENDING',
		deposit_paid BOOLEAN NOT NULL DEFAULT FALSE,
		deposit_paid_date TIMESTAMPTZ,
		deposit_paid_method VARCHAR(32),
		final_payment_received BOOLEAN NOT NULL DEFAULT FALSE,
		final_payment_date TIMESTAMPTZ,
		final_payment_method VARCHAR(32),
		deposit_refunded BOOLEAN NOT NULL DEFAULT FALSE,
		deposit_refunded_date TIMESTAMPTZ,
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		confirmed_by UUID,
		confirmed_at TIMESTAMPTZ,
		activated_by UUID,
		activated_at TIMESTAMPTZ,
		completed_by UUID,
		completed_at TIMESTAMPTZ,
		closed_by UUID,
		closed_at TIMESTAMPTZ,
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		disabled_by UUID,
		disabled_at TIMESTAMPTZ
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_number ON contracts (contract_number);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_vehicle_id ON contracts (vehicle_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_vehicle_dates ON contracts (vehicle_id, start_date, end_date);`,
	`CREATE TABLE IF NOT EXISTS contract_edits (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL,
		edited_by UUID NOT NULL,
		edited_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		edit_reason TEXT NOT NULL,
		fields_before JSONB NOT NULL,
		fields_after JSONB NOT NULL,
		ip_address VARCHAR(64) NOT NULL DEFAULT ''
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_edits_contract_id ON contract_edits (contract_id);`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL,
		action VARCHAR(64) NOT NULL,
		contract_id UUID,
		details TEXT NOT NULL DEFAULT '',
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_contract_id ON audit_logs (contract_id) WHERE contract_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at);`,
	`CREATE TABLE IF NOT EXISTS contract_sequence (
		id SMALLINT PRIMARY KEY,
		current_number BIGINT NOT NULL
	);`,
}

func runMigrations(db *gorm.DB, contractNumberStart int64) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	// Seed the singleton counter so the first issued number is the
	// configured start. Existing counters are never reset.
	if err := db.Exec(`
		INSERT INTO contract_sequence (id, current_number)
		VALUES (1, ?)
		ON CONFLICT (id) DO NOTHING
	`, contractNumberStart-1).Error; err != nil {
		return fmt.Errorf("seed contract sequence: %w", err)
	}
	return nil
}
