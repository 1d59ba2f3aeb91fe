package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finjoy/internal/core"
)

func newRecurringFixture(t *testing.T) (*fakeStore, *RecurringService) {
	t.Helper()
	store := newFakeStore()
	materializer := NewMaterializer(store, store).WithClock(func() time.Time {
		return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	})
	tracker := NewHistoryTracker(store)
	return store, NewRecurringService(store, tracker, materializer)
}

func TestRecurringService_CreateWithCurrentPeriod(t *testing.T) {
	store, svc := newRecurringFixture(t)
	catID := store.addCategory("Bills", core.Expense)
	ctx := context.Background()

	id, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		Name:        "Rent",
		Amount:      core.Money{Cents: -80000},
		CategoryID:  catID,
		DaysOfMonth: "15",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}, true)
	if err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}
	if id == 0 {
		t.Fatal("CreateDefinition() returned zero ID")
	}

	// Elapsed trigger days (Jan 15, Feb 15, Mar 15) are generated at once.
	if n := store.transactionCount(); n != 3 {
		t.Errorf("transaction count = %d, want 3", n)
	}
}

func TestRecurringService_CreateWithoutCurrentPeriod(t *testing.T) {
	store, svc := newRecurringFixture(t)
	catID := store.addCategory("Bills", core.Expense)

	_, err := svc.CreateDefinition(context.Background(), core.RecurringDefinition{
		Name:        "Rent",
		Amount:      core.Money{Cents: -80000},
		CategoryID:  catID,
		DaysOfMonth: "15",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}, false)
	if err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}
	if n := store.transactionCount(); n != 0 {
		t.Errorf("transaction count = %d, want 0 until the next sweep", n)
	}
}

func TestRecurringService_CreateChecksCategorySign(t *testing.T) {
	store, svc := newRecurringFixture(t)
	incomeCat := store.addCategory("Salary", core.Income)

	_, err := svc.CreateDefinition(context.Background(), core.RecurringDefinition{
		Name:        "Backwards",
		Amount:      core.Money{Cents: -100},
		CategoryID:  incomeCat,
		DaysOfMonth: "1",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}, false)
	if !errors.Is(err, core.ErrAmountSignMismatch) {
		t.Errorf("CreateDefinition() error = %v, want ErrAmountSignMismatch", err)
	}
}

func TestRecurringService_ImmutableFields(t *testing.T) {
	store, svc := newRecurringFixture(t)
	catID := store.addCategory("Bills", core.Expense)
	otherCat := store.addCategory("Food", core.Expense)
	ctx := context.Background()

	id, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		Name:        "Rent",
		Amount:      core.Money{Cents: -80000},
		CategoryID:  catID,
		DaysOfMonth: "1",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	base, _ := svc.GetDefinition(ctx, id)

	t.Run("name", func(t *testing.T) {
		def := *base
		def.Name = "Mortgage"
		if err := svc.UpdateDefinition(ctx, def); err == nil {
			t.Error("UpdateDefinition() should reject a name change")
		}
	})

	t.Run("category", func(t *testing.T) {
		def := *base
		def.CategoryID = otherCat
		if err := svc.UpdateDefinition(ctx, def); err == nil {
			t.Error("UpdateDefinition() should reject a category change")
		}
	})

	t.Run("start date", func(t *testing.T) {
		def := *base
		def.StartDate = core.NewDate(2024, 2, 1)
		if err := svc.UpdateDefinition(ctx, def); err == nil {
			t.Error("UpdateDefinition() should reject a start date change")
		}
	})

	t.Run("mutable fields", func(t *testing.T) {
		def := *base
		def.DaysOfMonth = "1,15"
		def.Description = "Split rent"
		if err := svc.UpdateDefinition(ctx, def); err != nil {
			t.Fatalf("UpdateDefinition() error = %v", err)
		}
		got, _ := svc.GetDefinition(ctx, id)
		if got.DaysOfMonth != "1,15" || got.Description != "Split rent" {
			t.Errorf("definition after update = %+v", got)
		}
	})
}

func TestRecurringService_UpdateDelegatesAmountToHistory(t *testing.T) {
	store, svc := newRecurringFixture(t)
	catID := store.addCategory("Bills", core.Expense)
	ctx := context.Background()

	id, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		Name:        "Rent",
		Amount:      core.Money{Cents: -80000},
		CategoryID:  catID,
		DaysOfMonth: "1",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	def, _ := svc.GetDefinition(ctx, id)
	def.Amount = core.Money{Cents: -90000}
	if err := svc.UpdateDefinition(ctx, *def); err != nil {
		t.Fatalf("UpdateDefinition() error = %v", err)
	}

	entries, _ := store.ListAmountHistory(ctx, id)
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2 (baseline + change)", len(entries))
	}
	if entries[0].Amount.Cents != -90000 {
		t.Errorf("latest history amount = %d, want -90000", entries[0].Amount.Cents)
	}
	// Effective from "today" per the pinned clock.
	if !entries[0].StartDate.Equal(core.NewDate(2024, 3, 20)) {
		t.Errorf("effective date = %s, want 2024-03-20", entries[0].StartDate)
	}
}

func TestRecurringService_PauseAndResume(t *testing.T) {
	store, svc := newRecurringFixture(t)
	catID := store.addCategory("Bills", core.Expense)
	ctx := context.Background()

	id, err := svc.CreateDefinition(ctx, core.RecurringDefinition{
		Name:        "Gym",
		Amount:      core.Money{Cents: -3000},
		CategoryID:  catID,
		DaysOfMonth: "1",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SetActive(ctx, id, false); err != nil {
		t.Fatalf("SetActive(false) error = %v", err)
	}
	def, _ := svc.GetDefinition(ctx, id)
	if def.IsActive {
		t.Fatal("definition still active after pause")
	}

	// A sweep while paused creates nothing; resuming backfills the gap.
	m := NewMaterializer(store, store)
	if created, _ := m.MaterializeUpTo(ctx, core.NewDate(2024, 3, 1)); created != 0 {
		t.Errorf("sweep while paused created = %d, want 0", created)
	}

	if err := svc.SetActive(ctx, id, true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}
	if created, _ := m.MaterializeUpTo(ctx, core.NewDate(2024, 3, 1)); created != 3 {
		t.Errorf("sweep after resume created = %d, want 3", created)
	}
}
