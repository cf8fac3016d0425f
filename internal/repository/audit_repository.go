package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditLogEntry) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO audit_logs (user_id, action, contract_id, details, ip_address)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.UserID,
		entry.Action,
		entry.ContractID,
		entry.Details,
		entry.IPAddress,
	).Error
}

func (r *AuditRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, action, contract_id, details, ip_address, created_at
		FROM audit_logs
		WHERE contract_id = ?
		ORDER BY created_at ASC
	`, contractID).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *AuditRepository) ListForPeriod(ctx context.Context, from, to time.Time) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, action, contract_id, details, ip_address, created_at
		FROM audit_logs
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`, from, to).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
