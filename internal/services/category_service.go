package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

// RecapInvalidator drops cached recaps for a user.
type RecapInvalidator interface {
	InvalidateRecap(userID string)
}

// CategoryService manages a user's categories. Every call is scoped to the
// authenticated owner; categories of other users read as not found.
type CategoryService struct {
	store       CategoryStore
	invalidator RecapInvalidator
	logger      *log.Logger
}

func NewCategoryService(store CategoryStore, invalidator RecapInvalidator, logger *log.Logger) *CategoryService {
	return &CategoryService{
		store:       store,
		invalidator: invalidator,
		logger:      logger.WithComponent(log.ComponentLedger),
	}
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, ownerID string, id int64) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.UserID != ownerID {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "Category created",
		log.FieldUserID, created.UserID,
		"category_id", created.ID)
	return created, nil
}

// Update replaces name, description, and direction. The owner cannot change.
func (s *CategoryService) Update(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	existing, err := s.Get(ctx, ownerID, c.ID)
	if err != nil {
		return core.Category{}, err
	}

	existing.Name = strings.TrimSpace(c.Name)
	existing.Description = c.Description
	existing.IsIncome = c.IsIncome
	if err := existing.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	if err := s.store.UpdateCategory(ctx, existing); err != nil {
		return core.Category{}, err
	}
	s.invalidate(ownerID)
	return existing, nil
}

// Delete removes the category together with its transactions.
func (s *CategoryService) Delete(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ownerID)
	s.logger.InfoContext(ctx, "Category deleted", log.FieldUserID, ownerID, "category_id", id)
	return nil
}

func (s *CategoryService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateRecap(userID)
	}
}
