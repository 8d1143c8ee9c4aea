package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for order data access.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByExternalReference(ctx context.Context, ref string) (*Order, error)
	List(ctx context.Context, filter *Filter, page, pageSize int) ([]*Order, int64, error)
	// TransitionStatus atomically moves an order from one status to another.
	// The update is conditional on the current status (compare-and-swap), so
	// concurrent webhook deliveries cannot interleave conflicting writes.
	// Returns false without error when the row was not in `from` anymore.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) (bool, error)
	// TouchLastChecked records when the poller last re-fetched the order.
	TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Filter narrows order listings for the admin query surface.
type Filter struct {
	Status        *OrderStatus
	CheckoutID    *string
	CustomerEmail *string
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		// Unique violation on external_reference means a replayed submission
		if strings.Contains(err.Error(), "duplicate key") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByExternalReference(ctx context.Context, ref string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "external_reference = ?", ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter *Filter, page, pageSize int) ([]*Order, int64, error) {
	var orders []*Order
	var total int64

	query := r.db.WithContext(ctx).Model(&Order{})
	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.CheckoutID != nil {
			query = query.Where("checkout_id = ?", *filter.CheckoutID)
		}
		if filter.CustomerEmail != nil {
			query = query.Where("customer_email = ?", *filter.CustomerEmail)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case StatusPaid:
		updates["paid_at"] = now
	case StatusFailed:
		updates["failed_at"] = now
	case StatusRefunded:
		updates["refunded_at"] = now
	}

	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", id).
		Update("last_checked_at", at).Error
}
