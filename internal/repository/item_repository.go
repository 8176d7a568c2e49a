package repository

import (
	"context"

	"github.com/crudlab/itemstore/internal/domain"

	"gorm.io/gorm"
)

// ItemRepository defines the interface for item data operations.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	FindByID(ctx context.Context, id string) (*domain.Item, error)
	FindAll(ctx context.Context) ([]domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
}

// gormItemRepository implements ItemRepository using GORM.
type gormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GORM item repository.
func NewGormItemRepository(db *gorm.DB) ItemRepository {
	return &gormItemRepository{db: db}
}

func (r *gormItemRepository) Create(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID retrieves an item by its id. Ids are opaque strings; a malformed
// id matches no row and surfaces as gorm.ErrRecordNotFound like any other
// missing record.
func (r *gormItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	result := r.db.WithContext(ctx).First(&item, "id = ?", id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &item, nil
}

// FindAll retrieves every item, most recently created first.
func (r *gormItemRepository) FindAll(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	result := r.db.WithContext(ctx).Order("created_at DESC").Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

func (r *gormItemRepository) Update(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete permanently removes an item. The Item model carries no DeletedAt
// column, so this is a hard delete and the id is never resurrected.
func (r *gormItemRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id).Error
}
