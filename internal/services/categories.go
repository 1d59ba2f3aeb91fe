package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

// DefaultEmoji is assigned when a category is created without one.
const DefaultEmoji = "📝"

// defaultCategories seeds a fresh database so the first transaction can be
// recorded without a category-management detour.
var defaultCategories = []core.Category{
	{Name: "Food", Type: core.Expense, Emoji: "🍽️"},
	{Name: "Transport", Type: core.Expense, Emoji: "🚗"},
	{Name: "Shopping", Type: core.Expense, Emoji: "🛍️"},
	{Name: "Bills", Type: core.Expense, Emoji: "📄"},
	{Name: "Entertainment", Type: core.Expense, Emoji: "🎮"},
	{Name: "Healthcare", Type: core.Expense, Emoji: "🏥"},
	{Name: "Education", Type: core.Expense, Emoji: "📚"},
	{Name: "Salary", Type: core.Income, Emoji: "💰"},
	{Name: "Freelance", Type: core.Income, Emoji: "💼"},
	{Name: "Investment", Type: core.Income, Emoji: "📈"},
}

// CategoryService manages the category catalog: ordering, defaults, and the
// lookup-or-create path the CSV importer relies on.
type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// CreateCategory validates and saves a category. New categories go to the
// end of the display order; an empty emoji gets the default.
func (s *CategoryService) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	if c.Emoji == "" {
		c.Emoji = DefaultEmoji
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}

	max, err := s.store.MaxDisplayOrder(ctx)
	if err != nil {
		return 0, fmt.Errorf("compute display order: %w", err)
	}
	c.DisplayOrder = max + 1

	id, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) ListCategoriesByType(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListCategoriesByType(ctx, t)
}

// UpdateCategory renames or restyles a category. Type changes are allowed;
// existing transactions keep their sign, so a type flip can leave old rows
// inconsistent with the new type. Callers surface that in the UI.
func (s *CategoryService) UpdateCategory(ctx context.Context, c core.Category) error {
	if c.Emoji == "" {
		c.Emoji = DefaultEmoji
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.UpdateCategory(ctx, c)
}

// DeleteCategory removes a category. Categories referenced by transactions
// or recurring definitions cannot be deleted; the store reports that as
// storage.ErrCategoryInUse.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.DeleteCategory(ctx, id)
}

// Reorder rewrites the display order to match the given ID sequence.
func (s *CategoryService) Reorder(ctx context.Context, orderedIDs []int64) error {
	for i, id := range orderedIDs {
		if err := s.store.UpdateCategoryOrder(ctx, id, int64(i+1)); err != nil {
			return fmt.Errorf("set order of category %d: %w", id, err)
		}
	}
	return nil
}

// GetOrCreate finds a category by name or creates it with the given type
// and the default emoji. The importer uses it for unknown category names.
func (s *CategoryService) GetOrCreate(ctx context.Context, name string, t core.CategoryType) (*core.Category, error) {
	existing, err := s.store.FindCategoryByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}

	id, err := s.CreateCategory(ctx, core.Category{Name: name, Type: t})
	if err != nil {
		return nil, err
	}
	return s.store.GetCategory(ctx, id)
}

// SeedDefaults populates an empty catalog with the default categories.
// A non-empty catalog is left untouched.
func (s *CategoryService) SeedDefaults(ctx context.Context) error {
	count, err := s.store.CountCategories(ctx)
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i, c := range defaultCategories {
		c.DisplayOrder = int64(i + 1)
		if _, err := s.store.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}

	slog.InfoContext(ctx, "Seeded default categories", "count", len(defaultCategories))
	return nil
}
