package http

import (
	"context"
	"sort"
	"sync"

	"finjoy/internal/core"
	"finjoy/internal/storage"
)

// fakeBackend is an in-memory stand-in for the SQLite repository, wide
// enough to stand behind every service the server wires.
type fakeBackend struct {
	mu sync.Mutex

	nextID       int64
	transactions map[int64]core.Transaction
	definitions  map[int64]core.RecurringDefinition
	categories   map[int64]core.Category
	history      []core.AmountChange
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		transactions: make(map[int64]core.Transaction),
		definitions:  make(map[int64]core.RecurringDefinition),
		categories:   make(map[int64]core.Category),
	}
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

// Transaction surface

func (f *fakeBackend) InsertTransaction(_ context.Context, t core.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	f.transactions[t.ID] = t
	return t.ID, nil
}

func (f *fakeBackend) GetTransaction(_ context.Context, id int64) (*core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func (f *fakeBackend) UpdateTransaction(_ context.Context, t core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[t.ID]; !ok {
		return storage.ErrNotFound
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeBackend) DeleteTransaction(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeBackend) FindTransaction(_ context.Context, description string, date core.Date) (*core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.Description == description && t.Date.Equal(date) {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) FindTransactionByImportKey(_ context.Context, date core.Date, description string, amount core.Money) (*core.Transaction, error) {
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

func (f *fakeBackend) ListTransactionsWithCategory(_ context.Context, from, to core.Date) ([]storage.TransactionWithCategory, error) {
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

func (f *fakeBackend) InsertRecurringDefinition(_ context.Context, def core.RecurringDefinition) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def.ID = f.id()
	f.definitions[def.ID] = def
	return def.ID, nil
}

func (f *fakeBackend) GetRecurringDefinition(_ context.Context, id int64) (*core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def, ok := f.definitions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &def, nil
}

func (f *fakeBackend) UpdateRecurringDefinition(_ context.Context, def core.RecurringDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.definitions[def.ID]; !ok {
		return storage.ErrNotFound
	}
	f.definitions[def.ID] = def
	return nil
}

func (f *fakeBackend) DeleteRecurringDefinition(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.definitions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.definitions, id)
	return nil
}

func (f *fakeBackend) ListRecurringDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringDefinition
	for _, def := range f.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) ListActiveRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	all, _ := f.ListRecurringDefinitions(ctx)
	var out []core.RecurringDefinition
	for _, def := range all {
		if def.IsActive {
			out = append(out, def)
		}
	}
	return out, nil
}

func (f *fakeBackend) FindRecurringByNameAndStartDate(_ context.Context, name string, start core.Date) (*core.RecurringDefinition, error) {
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

func (f *fakeBackend) InsertAmountHistory(_ context.Context, h core.AmountChange) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h.ID = f.id()
	f.history = append(f.history, h)
	return h.ID, nil
}

func (f *fakeBackend) ListAmountHistory(_ context.Context, definitionID int64) ([]core.AmountChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.AmountChange
	for _, h := range f.history {
		if h.DefinitionID == definitionID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[j].StartDate.Before(out[i].StartDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeBackend) AmountOnDate(_ context.Context, definitionID int64, date core.Date) (core.Money, bool, error) {
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

func (f *fakeBackend) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	f.categories[c.ID] = c
	return c.ID, nil
}

func (f *fakeBackend) GetCategory(_ context.Context, id int64) (*core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (f *fakeBackend) FindCategoryByName(_ context.Context, name string) (*core.Category, error) {
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

func (f *fakeBackend) ListCategories(_ context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Category
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeBackend) ListCategoriesByType(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	all, _ := f.ListCategories(ctx)
	var out []core.Category
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) UpdateCategory(_ context.Context, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[c.ID]; !ok {
		return storage.ErrNotFound
	}
	f.categories[c.ID] = c
	return nil
}

func (f *fakeBackend) DeleteCategory(_ context.Context, id int64) error {
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

func (f *fakeBackend) MaxDisplayOrder(_ context.Context) (int64, error) {
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

func (f *fakeBackend) UpdateCategoryOrder(_ context.Context, id, order int64) error {
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

func (f *fakeBackend) CountCategories(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.categories)), nil
}

// Report surface, computed naively over the in-memory rows.

func (f *fakeBackend) RangeTotals(_ context.Context, from, to core.Date) (income, expense core.Money, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		if t.Amount.Cents > 0 {
			income.Cents += t.Amount.Cents
		} else {
			expense.Cents += t.Amount.Cents
		}
	}
	return income, expense, nil
}

func (f *fakeBackend) CategorySums(_ context.Context, from, to core.Date) ([]storage.CategorySum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byCategory := make(map[int64]*storage.CategorySum)
	for _, t := range f.transactions {
		if t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		sum, ok := byCategory[t.CategoryID]
		if !ok {
			c := f.categories[t.CategoryID]
			sum = &storage.CategorySum{
				CategoryName:  c.Name,
				CategoryType:  c.Type,
				CategoryEmoji: c.Emoji,
			}
			byCategory[t.CategoryID] = sum
		}
		sum.Total.Cents += t.Amount.Cents
	}
	var out []storage.CategorySum
	for _, sum := range byCategory {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Total.Cents, out[j].Total.Cents
		if ai < 0 {
			ai = -ai
		}
		if aj < 0 {
			aj = -aj
		}
		return ai > aj
	})
	return out, nil
}

func (f *fakeBackend) TopExpenseTransactions(ctx context.Context, from, to core.Date, limit int) ([]storage.TransactionWithCategory, error) {
	all, _ := f.ListTransactionsWithCategory(ctx, from, to)
	var out []storage.TransactionWithCategory
	for _, t := range all {
		if t.Amount.Cents < 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount.Cents < out[j].Amount.Cents })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBackend) CategoryTransactions(ctx context.Context, categoryName string, from, to core.Date, limit int) ([]storage.TransactionWithCategory, error) {
	all, _ := f.ListTransactionsWithCategory(ctx, from, to)
	var out []storage.TransactionWithCategory
	for _, t := range all {
		if t.CategoryName == categoryName {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
