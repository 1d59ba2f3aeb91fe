package transfer

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"finjoy/internal/core"
	"finjoy/internal/services"
	"finjoy/internal/storage"
)

// fakeBackend implements the exporter, importer and category store surfaces
// over in-memory maps.
type fakeBackend struct {
	nextID       int64
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	definitions  map[int64]core.RecurringDefinition
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		categories:   make(map[int64]core.Category),
		transactions: make(map[int64]core.Transaction),
		definitions:  make(map[int64]core.RecurringDefinition),
	}
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) addCategory(name string, t core.CategoryType) int64 {
	id := f.id()
	f.categories[id] = core.Category{ID: id, Name: name, Type: t, Emoji: "📝", DisplayOrder: id}
	return id
}

// ExportStore

func (f *fakeBackend) ListTransactionsWithCategory(_ context.Context, from, to core.Date) ([]storage.TransactionWithCategory, error) {
	var out []storage.TransactionWithCategory
	for _, t := range f.transactions {
		if t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		c := f.categories[t.CategoryID]
		out = append(out, storage.TransactionWithCategory{
			Transaction:  t,
			CategoryName: c.Name,
			CategoryType: c.Type,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) ListRecurringDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	var out []core.RecurringDefinition
	for _, def := range f.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) ListCategories(_ context.Context) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// ImportStore

func (f *fakeBackend) FindTransactionByImportKey(_ context.Context, date core.Date, description string, amount core.Money) (*core.Transaction, error) {
	for _, t := range f.transactions {
		if t.Date.Equal(date) && t.Description == description && t.Amount.Cents == amount.Cents {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) FindRecurringByNameAndStartDate(_ context.Context, name string, start core.Date) (*core.RecurringDefinition, error) {
	for _, def := range f.definitions {
		if def.Name == name && def.StartDate.Equal(start) {
			d := def
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) InsertRecurringDefinition(_ context.Context, def core.RecurringDefinition) (int64, error) {
	def.ID = f.id()
	f.definitions[def.ID] = def
	return def.ID, nil
}

// services.TransactionCreator

func (f *fakeBackend) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	t.ID = f.id()
	f.transactions[t.ID] = t
	return t.ID, nil
}

// services.CategoryStore

func (f *fakeBackend) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	c.ID = f.id()
	f.categories[c.ID] = c
	return c.ID, nil
}

func (f *fakeBackend) GetCategory(_ context.Context, id int64) (*core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (f *fakeBackend) FindCategoryByName(_ context.Context, name string) (*core.Category, error) {
	for _, c := range f.categories {
		if c.Name == name {
			cc := c
			return &cc, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeBackend) ListCategoriesByType(_ context.Context, t core.CategoryType) ([]core.Category, error) {
	all, _ := f.ListCategories(context.Background())
	var out []core.Category
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) UpdateCategory(_ context.Context, c core.Category) error {
	f.categories[c.ID] = c
	return nil
}

func (f *fakeBackend) DeleteCategory(_ context.Context, id int64) error {
	delete(f.categories, id)
	return nil
}

func (f *fakeBackend) MaxDisplayOrder(_ context.Context) (int64, error) {
	var max int64
	for _, c := range f.categories {
		if c.DisplayOrder > max {
			max = c.DisplayOrder
		}
	}
	return max, nil
}

func (f *fakeBackend) UpdateCategoryOrder(_ context.Context, id, order int64) error {
	c := f.categories[id]
	c.DisplayOrder = order
	f.categories[id] = c
	return nil
}

func (f *fakeBackend) CountCategories(_ context.Context) (int64, error) {
	return int64(len(f.categories)), nil
}

func newImporterFor(b *fakeBackend) *Importer {
	return NewImporter(b, b, services.NewCategoryService(b))
}

func seededBackend() *fakeBackend {
	b := newFakeBackend()
	food := b.addCategory("Food", core.Expense)
	salary := b.addCategory("Salary", core.Income)
	b.CreateTransaction(context.Background(), core.Transaction{
		CategoryID:  food,
		Amount:      core.Money{Cents: -1250},
		Description: "Dinner, with drinks",
		Date:        core.NewDate(2024, 3, 1),
	})
	b.CreateTransaction(context.Background(), core.Transaction{
		CategoryID:  salary,
		Amount:      core.Money{Cents: 250000},
		Description: "March salary",
		Date:        core.NewDate(2024, 3, 25),
	})
	b.InsertRecurringDefinition(context.Background(), core.RecurringDefinition{
		Name:        "Rent",
		Amount:      core.Money{Cents: -80000},
		CategoryID:  food,
		DaysOfMonth: "1,15",
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
		Description: "Split rent",
	})
	return b
}

func TestExportFormat(t *testing.T) {
	b := seededBackend()
	var buf bytes.Buffer

	if err := Export(context.Background(), b, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"### TRANSACTIONS ###\ndate,amount,category,description\n",
		"### RECURRING ###\nname,amount,category,days,startDate,description\n",
		"2024-03-01,-12.50,Food,\"Dinner, with drinks\"\n",
		"2024-03-25,2500.00,Salary,March salary\n",
		"Rent,-800.00,Food,\"1,15\",2024-01-01,Split rent\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q in:\n%s", want, out)
		}
	}
}

func TestImportRoundTrip(t *testing.T) {
	source := seededBackend()
	var buf bytes.Buffer
	if err := Export(context.Background(), source, &buf); err != nil {
		t.Fatal(err)
	}

	dest := newFakeBackend()
	res, err := newImporterFor(dest).Import(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.TransactionsImported != 2 || res.RecurringImported != 1 || res.Malformed != 0 {
		t.Fatalf("result = %+v", res)
	}

	// Multi-day trigger sets survive the round trip.
	def, err := dest.FindRecurringByNameAndStartDate(context.Background(), "Rent", core.NewDate(2024, 1, 1))
	if err != nil || def == nil {
		t.Fatalf("imported definition not found: %v", err)
	}
	if def.DaysOfMonth != "1,15" {
		t.Errorf("DaysOfMonth = %q, want \"1,15\"", def.DaysOfMonth)
	}
	if def.Amount.Cents != -80000 {
		t.Errorf("Amount = %d, want -80000", def.Amount.Cents)
	}

	// Categories were created by name with the sign-derived type.
	cat, err := dest.FindCategoryByName(context.Background(), "Salary")
	if err != nil {
		t.Fatalf("Salary category not created: %v", err)
	}
	if cat.Type != core.Income {
		t.Errorf("Salary type = %q, want income", cat.Type)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	source := seededBackend()
	var buf bytes.Buffer
	if err := Export(context.Background(), source, &buf); err != nil {
		t.Fatal(err)
	}

	dest := newFakeBackend()
	importer := newImporterFor(dest)
	if _, err := importer.Import(context.Background(), bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}

	res, err := importer.Import(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if res.TransactionsImported != 0 || res.RecurringImported != 0 {
		t.Errorf("second import created rows: %+v", res)
	}
	if res.TransactionsSkipped != 2 || res.RecurringSkipped != 1 {
		t.Errorf("second import skips = %+v", res)
	}
}

func TestImportSkipsMalformedRows(t *testing.T) {
	backup := strings.Join([]string{
		"### TRANSACTIONS ###",
		"date,amount,category,description",
		"not-a-date,-12.50,Food,Lunch",
		"2024-03-01,zero,Food,Lunch",
		"2024-03-01,-12.50,Food,Lunch",
		"",
		"### RECURRING ###",
		"name,amount,category,days,startDate,description",
		"Broken,-10.00,Bills,99,2024-01-01,out of range day",
		"Rent,-800.00,Bills,1,2024-01-01,ok",
	}, "\n")

	dest := newFakeBackend()
	res, err := newImporterFor(dest).Import(context.Background(), strings.NewReader(backup))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.TransactionsImported != 1 {
		t.Errorf("TransactionsImported = %d, want 1", res.TransactionsImported)
	}
	if res.RecurringImported != 1 {
		t.Errorf("RecurringImported = %d, want 1", res.RecurringImported)
	}
	if res.Malformed != 3 {
		t.Errorf("Malformed = %d, want 3", res.Malformed)
	}
}
