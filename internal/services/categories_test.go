package services

import (
	"context"
	"errors"
	"testing"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

func TestCategoryService_CreateAppendsToDisplayOrder(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store)
	ctx := context.Background()

	first, err := svc.CreateCategory(ctx, core.Category{Name: "Food", Type: core.Expense, Emoji: "🍽️"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	second, err := svc.CreateCategory(ctx, core.Category{Name: "Transport", Type: core.Expense})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	a, _ := store.GetCategory(ctx, first)
	b, _ := store.GetCategory(ctx, second)
	if b.DisplayOrder != a.DisplayOrder+1 {
		t.Errorf("display orders = %d, %d; want consecutive", a.DisplayOrder, b.DisplayOrder)
	}
	if b.Emoji != DefaultEmoji {
		t.Errorf("emoji = %q, want default %q", b.Emoji, DefaultEmoji)
	}
}

func TestCategoryService_CreateValidation(t *testing.T) {
	svc := NewCategoryService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, core.Category{Name: "  ", Type: core.Expense}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name error = %v, want ErrEmptyName", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{Name: "X", Type: "savings"}); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("bad type error = %v, want ErrInvalidCategory", err)
	}
}

func TestCategoryService_DeleteInUse(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store)
	ctx := context.Background()

	id := store.addCategory("Food", core.Expense)
	if _, err := store.InsertTransaction(ctx, core.Transaction{
		CategoryID:  id,
		Amount:      core.Money{Cents: -100},
		Description: "Lunch",
		Date:        core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteCategory(ctx, id); !errors.Is(err, storage.ErrCategoryInUse) {
		t.Errorf("DeleteCategory() error = %v, want ErrCategoryInUse", err)
	}
}

func TestCategoryService_Reorder(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store)
	ctx := context.Background()

	a := store.addCategory("Food", core.Expense)
	b := store.addCategory("Transport", core.Expense)
	c := store.addCategory("Bills", core.Expense)

	if err := svc.Reorder(ctx, []int64{c, a, b}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}

	cats, _ := svc.ListCategories(ctx)
	got := []string{cats[0].Name, cats[1].Name, cats[2].Name}
	want := []string{"Bills", "Food", "Transport"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCategoryService_GetOrCreate(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store)
	ctx := context.Background()

	existing := store.addCategory("Food", core.Expense)

	got, err := svc.GetOrCreate(ctx, "Food", core.Expense)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if got.ID != existing {
		t.Errorf("GetOrCreate() reused ID = %d, want %d", got.ID, existing)
	}

	created, err := svc.GetOrCreate(ctx, "Pets", core.Expense)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if created.Name != "Pets" || created.Emoji != DefaultEmoji {
		t.Errorf("created category = %+v", created)
	}
}

func TestCategoryService_SeedDefaults(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store)
	ctx := context.Background()

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	count, _ := store.CountCategories(ctx)
	if count != int64(len(defaultCategories)) {
		t.Fatalf("seeded %d categories, want %d", count, len(defaultCategories))
	}

	// Idempotent: an already-populated catalog is untouched.
	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("second SeedDefaults() error = %v", err)
	}
	again, _ := store.CountCategories(ctx)
	if again != count {
		t.Errorf("category count after reseed = %d, want %d", again, count)
	}

	incomes, _ := svc.ListCategoriesByType(ctx, core.Income)
	if len(incomes) != 3 {
		t.Errorf("income categories = %d, want 3", len(incomes))
	}
}
