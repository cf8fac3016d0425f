package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

// EditRepository reads draft edit snapshots. Writes happen inside the
// contract repository's UpdateDraft transaction; there is deliberately no
// standalone insert, update or delete path.
type EditRepository struct {
	db *gorm.DB
}

func NewEditRepository(db *gorm.DB) *EditRepository {
	return &EditRepository{db: db}
}

func (r *EditRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.ContractEdit, error) {
	var edits []model.ContractEdit
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			contract_id,
			edited_by,
			edited_at,
			edit_reason,
			fields_before,
			fields_after,
			ip_address
		FROM contract_edits
		WHERE contract_id = ?
		ORDER BY edited_at ASC
	`, contractID).Scan(&edits).Error
	if err != nil {
		return nil, err
	}
	return edits, nil
}
