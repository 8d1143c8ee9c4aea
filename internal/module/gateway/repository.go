package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for gateway data access.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Gateway, error)
	// NewestActiveByProvider returns the most recently created active gateway
	// for the provider, or ErrGatewayNotFound.
	NewestActiveByProvider(ctx context.Context, provider string) (*Gateway, error)
	// NewestByProvider returns the most recently created gateway for the
	// provider regardless of the active flag, or ErrGatewayNotFound.
	NewestByProvider(ctx context.Context, provider string) (*Gateway, error)
	List(ctx context.Context) ([]*Gateway, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new gateway repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Gateway, error) {
	var gw Gateway
	err := r.db.WithContext(ctx).First(&gw, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayNotFound
		}
		return nil, err
	}
	return &gw, nil
}

func (r *repository) NewestActiveByProvider(ctx context.Context, provider string) (*Gateway, error) {
	var gw Gateway
	err := r.db.WithContext(ctx).
		Where("provider = ? AND active = ?", provider, true).
		Order("created_at DESC").
		First(&gw).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayNotFound
		}
		return nil, err
	}
	return &gw, nil
}

func (r *repository) NewestByProvider(ctx context.Context, provider string) (*Gateway, error) {
	var gw Gateway
	err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Order("created_at DESC").
		First(&gw).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayNotFound
		}
		return nil, err
	}
	return &gw, nil
}

func (r *repository) List(ctx context.Context) ([]*Gateway, error) {
	var gateways []*Gateway
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&gateways).Error
	if err != nil {
		return nil, err
	}
	return gateways, nil
}
