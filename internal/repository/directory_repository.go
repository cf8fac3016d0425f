package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

// DirectoryRepository reads customer and vehicle records owned by the
// directory service. Strictly read-only from this service.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, full_name, phone, disabled
		FROM customers
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &customer, nil
}

func (r *DirectoryRepository) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, plate, make, model, disabled
		FROM vehicles
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&vehicle).Error
	if err != nil {
		return nil, err
	}
	if vehicle.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &vehicle, nil
}
