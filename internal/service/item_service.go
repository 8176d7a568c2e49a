package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crudlab/itemstore/internal/domain"
	"github.com/crudlab/itemstore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CreateItemRequest holds the data needed to create a new item.
type CreateItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateItemRequest holds the data for updating an existing item.
// Pointer fields distinguish an omitted field from one set to its zero
// value; omitted fields are left unchanged.
type UpdateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// ItemResponse is the standard representation of an item returned by the
// service.
type ItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"createdAt"`
}

// ItemService defines the operations for managing items.
type ItemService interface {
	// CreateItem validates the request, assigns id and creation time, and
	// persists the new item.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResponse, error)

	// GetItemByID retrieves a single item. A malformed id is reported as
	// ErrNotFound, same as a missing record.
	GetItemByID(ctx context.Context, id string) (*ItemResponse, error)

	// GetAllItems retrieves every item, newest first.
	GetAllItems(ctx context.Context) ([]ItemResponse, error)

	// UpdateItem applies the provided fields to an existing item and
	// returns the post-update record.
	UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*ItemResponse, error)

	// DeleteItem permanently removes an item and returns its last-known
	// state.
	DeleteItem(ctx context.Context, id string) (*ItemResponse, error)
}

type itemService struct {
	repo repository.ItemRepository
	log  zerolog.Logger
}

// NewItemService creates a new ItemService backed by the given repository.
func NewItemService(repo repository.ItemRepository, log zerolog.Logger) ItemService {
	return &itemService{
		repo: repo,
		log:  log.With().Str("component", "item_service").Logger(),
	}
}

func toResponse(item *domain.Item) *ItemResponse {
	return &ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Completed:   item.Completed,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (s *itemService) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResponse, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: name and description are required", ErrValidation)
	}

	newItem := &domain.Item{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Completed:   false,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, newItem); err != nil {
		s.log.Error().Err(err).Msg("failed to create item")
		return nil, fmt.Errorf("create item: %w", ErrStorage)
	}

	return toResponse(newItem), nil
}

func (s *itemService) GetItemByID(ctx context.Context, id string) (*ItemResponse, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to fetch item")
		return nil, fmt.Errorf("get item: %w", ErrStorage)
	}
	return toResponse(item), nil
}

func (s *itemService) GetAllItems(ctx context.Context) ([]ItemResponse, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch items")
		return nil, fmt.Errorf("list items: %w", ErrStorage)
	}

	responses := make([]ItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, *toResponse(&items[i]))
	}
	return responses, nil
}

func (s *itemService) UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*ItemResponse, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to fetch item for update")
		return nil, fmt.Errorf("update item: %w", ErrStorage)
	}

	// Updated values face the same non-empty constraints as creation.
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return nil, fmt.Errorf("%w: description must not be empty", ErrValidation)
		}
		existing.Description = *req.Description
	}
	if req.Completed != nil {
		existing.Completed = *req.Completed
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("failed to update item")
		return nil, fmt.Errorf("update item: %w", ErrStorage)
	}

	return toResponse(existing), nil
}

func (s *itemService) DeleteItem(ctx context.Context, id string) (*ItemResponse, error) {
	// Fetch first so the deleted record's last-known state can be returned
	// to the caller for confirmation display.
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to fetch item for deletion")
		return nil, fmt.Errorf("delete item: %w", ErrStorage)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("failed to delete item")
		return nil, fmt.Errorf("delete item: %w", ErrStorage)
	}

	return toResponse(existing), nil
}
