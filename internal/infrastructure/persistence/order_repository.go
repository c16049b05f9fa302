package persistence

import (
	"context"

	"github.com/printshop/backend/internal/domain/sales"
	"gorm.io/gorm"
)

// GormOrderRepository implements sales.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uint64) (*sales.Order, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate finds an order with its items and locks the order row
func (r *GormOrderRepository) FindForUpdate(ctx context.Context, id uint64) (*sales.Order, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormOrderRepository) find(db *gorm.DB, id uint64) (*sales.Order, error) {
	var order sales.Order
	if err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, notFound(err, sales.AggregateTypeOrder, id)
	}
	return &order, nil
}

// FindHistory returns the status trail of an order, oldest first
func (r *GormOrderRepository) FindHistory(ctx context.Context, orderID uint64) ([]sales.OrderStatusHistory, error) {
	var history []sales.OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at, id").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// Save inserts a new order or updates an existing one guarded by its version.
// Items are diffed against the stored rows and pending history is appended.
func (r *GormOrderRepository) Save(ctx context.Context, order *sales.Order) error {
	db := r.db.WithContext(ctx)
	if order.ID == 0 {
		if err := db.Omit("Items").Create(order).Error; err != nil {
			return err
		}
	} else if err := updateVersioned(db, order, &order.BaseAggregateRoot, sales.AggregateTypeOrder); err != nil {
		return err
	}

	if err := r.saveItems(db, order); err != nil {
		return err
	}

	pending := order.PendingHistory()
	for i := range pending {
		pending[i].OrderID = order.ID
	}
	if len(pending) > 0 {
		if err := db.Create(&pending).Error; err != nil {
			return err
		}
	}
	order.ClearPendingHistory()
	return nil
}

func (r *GormOrderRepository) saveItems(db *gorm.DB, order *sales.Order) error {
	kept := make([]uint64, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ID != 0 {
			kept = append(kept, item.ID)
		}
	}
	stale := db.Where("order_id = ?", order.ID)
	if len(kept) > 0 {
		stale = stale.Where("id NOT IN ?", kept)
	}
	if err := stale.Delete(&sales.OrderItem{}).Error; err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if item.ID == 0 {
			if err := db.Create(item).Error; err != nil {
				return err
			}
			continue
		}
		if err := db.Save(item).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ sales.OrderRepository = (*GormOrderRepository)(nil)
