package services

import (
	"context"
	"sort"
	"sync"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

// fakeStore is an in-memory stand-in for the SQLite repository, shared by
// the service tests.
type fakeStore struct {
	mu sync.Mutex

	nextID       int64
	transactions map[int64]core.Transaction
	definitions  map[int64]core.RecurringDefinition
	categories   map[int64]core.Category
	history      []core.AmountChange
	syncStatus   map[int64]string

	// Error injection
	listActiveErr error
	findErr       error
	insertErr     error
	updateDefErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[int64]core.Transaction),
		definitions:  make(map[int64]core.RecurringDefinition),
		categories:   make(map[int64]core.Category),
		syncStatus:   make(map[int64]string),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addCategory(name string, t core.CategoryType) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.categories[id] = core.Category{ID: id, Name: name, Type: t, Emoji: "📝", DisplayOrder: id}
	return id
}

func (f *fakeStore) addDefinition(def core.RecurringDefinition) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	def.ID = id
	f.definitions[id] = def
	return id
}

func (f *fakeStore) transactionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transactions)
}

// TransactionCreator: inserts directly, bypassing ledger conventions.

func (f *fakeStore) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	return f.InsertTransaction(ctx, t)
}

// Transaction surface

func (f *fakeStore) InsertTransaction(_ context.Context, t core.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	t.ID = f.id()
	f.transactions[t.ID] = t
	f.syncStatus[t.ID] = "pending"
	return t.ID, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id int64) (*core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[t.ID]; !ok {
		return storage.ErrNotFound
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	delete(f.syncStatus, id)
	return nil
}

func (f *fakeStore) FindTransaction(_ context.Context, description string, date core.Date) (*core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, t := range f.transactions {
		if t.Description == description && t.Date.Equal(date) {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindTransactionByImportKey(_ context.Context, date core.Date, description string, amount core.Money) (*core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.Date.Equal(date) && t.Description == description && t.Amount.Cents == amount.Cents {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListTransactionsWithCategory(_ context.Context, from, to core.Date) ([]storage.TransactionWithCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.TransactionWithCategory
	for _, t := range f.transactions {
		if t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		c := f.categories[t.CategoryID]
		out = append(out, storage.TransactionWithCategory{
			Transaction:   t,
			CategoryName:  c.Name,
			CategoryType:  c.Type,
			CategoryEmoji: c.Emoji,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Recurring surface

func (f *fakeStore) InsertRecurringDefinition(_ context.Context, def core.RecurringDefinition) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def.ID = f.id()
	f.definitions[def.ID] = def
	return def.ID, nil
}

func (f *fakeStore) GetRecurringDefinition(_ context.Context, id int64) (*core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def, ok := f.definitions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &def, nil
}

func (f *fakeStore) UpdateRecurringDefinition(_ context.Context, def core.RecurringDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateDefErr != nil {
		return f.updateDefErr
	}
	if _, ok := f.definitions[def.ID]; !ok {
		return storage.ErrNotFound
	}
	f.definitions[def.ID] = def
	return nil
}

func (f *fakeStore) DeleteRecurringDefinition(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.definitions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.definitions, id)
	return nil
}

func (f *fakeStore) ListRecurringDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringDefinition
	for _, def := range f.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListActiveRecurringDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	if f.listActiveErr != nil {
		f.mu.Unlock()
		return nil, f.listActiveErr
	}
	f.mu.Unlock()

	all, _ := f.ListRecurringDefinitions(context.Background())
	var out []core.RecurringDefinition
	for _, def := range all {
		if def.IsActive {
			out = append(out, def)
		}
	}
	return out, nil
}

func (f *fakeStore) FindRecurringByNameAndStartDate(_ context.Context, name string, start core.Date) (*core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, def := range f.definitions {
		if def.Name == name && def.StartDate.Equal(start) {
			d := def
			return &d, nil
		}
	}
	return nil, nil
}

// History surface

func (f *fakeStore) InsertAmountHistory(_ context.Context, h core.AmountChange) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h.ID = f.id()
	f.history = append(f.history, h)
	return h.ID, nil
}

func (f *fakeStore) ListAmountHistory(_ context.Context, definitionID int64) ([]core.AmountChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.AmountChange
	for _, h := range f.history {
		if h.DefinitionID == definitionID {
			out = append(out, h)
		}
	}
	// Newest first, matching the SQL ordering.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[j].StartDate.Before(out[i].StartDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) AmountOnDate(_ context.Context, definitionID int64, date core.Date) (core.Money, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *core.AmountChange
	for i, h := range f.history {
		if h.DefinitionID != definitionID || h.StartDate.After(date.Time) {
			continue
		}
		if best == nil ||
			best.StartDate.Before(h.StartDate.Time) ||
			(best.StartDate.Equal(h.StartDate) && h.ID > best.ID) {
			best = &f.history[i]
		}
	}
	if best == nil {
		return core.Money{}, false, nil
	}
	return best.Amount, true, nil
}

// Category surface

func (f *fakeStore) GetCategory(_ context.Context, id int64) (*core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) FindCategoryByName(_ context.Context, name string) (*core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == name {
			cc := c
			return &cc, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.categories[c.ID] = c
	return c.ID, nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Category
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeStore) ListCategoriesByType(_ context.Context, t core.CategoryType) ([]core.Category, error) {
	all, _ := f.ListCategories(context.Background())
	var out []core.Category
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[c.ID]; !ok {
		return storage.ErrNotFound
	}
	f.categories[c.ID] = c
	return nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return storage.ErrNotFound
	}
	for _, t := range f.transactions {
		if t.CategoryID == id {
			return storage.ErrCategoryInUse
		}
	}
	for _, def := range f.definitions {
		if def.CategoryID == id {
			return storage.ErrCategoryInUse
		}
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeStore) MaxDisplayOrder(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var max int64
	for _, c := range f.categories {
		if c.DisplayOrder > max {
			max = c.DisplayOrder
		}
	}
	return max, nil
}

func (f *fakeStore) UpdateCategoryOrder(_ context.Context, id, order int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.DisplayOrder = order
	f.categories[id] = c
	return nil
}

func (f *fakeStore) CountCategories(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.categories)), nil
}

// Sync surface

func (f *fakeStore) GetTransactionWithCategory(_ context.Context, id int64) (*storage.TransactionWithCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := f.categories[t.CategoryID]
	return &storage.TransactionWithCategory{
		Transaction:   t,
		CategoryName:  c.Name,
		CategoryType:  c.Type,
		CategoryEmoji: c.Emoji,
	}, nil
}

func (f *fakeStore) ListPendingSyncTransactions(_ context.Context, limit int) ([]storage.PendingSyncTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, st := range f.syncStatus {
		if st == "pending" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]storage.PendingSyncTransaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, storage.PendingSyncTransaction{ID: id})
	}
	return out, nil
}

func (f *fakeStore) MarkTransactionSynced(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncStatus[id] = "synced"
	return nil
}

func (f *fakeStore) MarkTransactionSyncError(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncStatus[id] = "error"
	return nil
}
