package transaction

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/FACorreiaa/finance-ingest/internal/domain/common"
)

func strPtr(s string) *string { return &s }

func TestPostgresStore_Upsert_NaturalKeyInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(upsertByNaturalKeyQuery)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "Amazon.in", pgxmock.AnyArg(), 499.0,
			"INR", "amazon", strPtr("msg-123"), strPtr("Your order"), strPtr("auto-confirm@amazon.in"),
			"Order of Rs 499", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(id, true))

	store := NewPostgresStore(mock)
	rec := &Record{
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Merchant:    "Amazon.in",
		Amount:      499.0,
		Currency:    "INR",
		Source:      "amazon",
		NaturalKey:  strPtr("msg-123"),
		Subject:     strPtr("Your order"),
		FromAddress: strPtr("auto-confirm@amazon.in"),
		RawSnippet:  "Order of Rs 499",
	}

	inserted, err := store.Upsert(context.Background(), rec)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !inserted {
		t.Fatal("expected inserted=true for a new natural key")
	}
	if rec.ID != id {
		t.Fatalf("expected id %s, got %s", id, rec.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_Upsert_NaturalKeyConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	existing := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(upsertByNaturalKeyQuery)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "Amazon.in", pgxmock.AnyArg(), 499.0,
			"INR", "amazon", strPtr("msg-123"), pgxmock.AnyArg(), pgxmock.AnyArg(), "snippet", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(existing, false))

	store := NewPostgresStore(mock)
	rec := &Record{
		Date:       time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		Merchant:   "Amazon.in",
		Amount:     499.0,
		Currency:   "INR",
		Source:     "amazon",
		NaturalKey: strPtr("msg-123"),
		RawSnippet: "snippet",
	}

	inserted, err := store.Upsert(context.Background(), rec)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if inserted {
		t.Fatal("expected inserted=false on natural key conflict")
	}
	if rec.ID != existing {
		t.Fatalf("expected existing row id %s, got %s", existing, rec.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_Upsert_NoNaturalKeyAlwaysInserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	// Two identical candidates without a natural key must produce two rows.
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "AMAZON", pgxmock.AnyArg(), 4500.0,
				"INR", "sms", pgxmock.AnyArg(), pgxmock.AnyArg(), "Rs 4500 debited at AMAZON", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	}

	store := NewPostgresStore(mock)
	for i := 0; i < 2; i++ {
		rec := &Record{
			Date:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Merchant:   "AMAZON",
			Amount:     4500.0,
			Currency:   "INR",
			Source:     "sms",
			RawSnippet: "Rs 4500 debited at AMAZON",
		}
		inserted, err := store.Upsert(context.Background(), rec)
		if err != nil {
			t.Fatalf("Upsert #%d: %v", i+1, err)
		}
		if !inserted {
			t.Fatalf("Upsert #%d: expected inserted=true without natural key", i+1)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_SetUserCategory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(setUserCategoryQuery)).
		WithArgs(id, "Groceries").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewPostgresStore(mock)
	if err := store.SetUserCategory(context.Background(), id, "Groceries"); err != nil {
		t.Fatalf("SetUserCategory: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_SetUserCategory_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(setUserCategoryQuery)).
		WithArgs(id, "Groceries").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	err = store.SetUserCategory(context.Background(), id, "Groceries")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_SetCategoryIfBlank_AlreadySet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	// Zero rows affected: the WHERE clause skipped a non-blank category.
	mock.ExpectExec(regexp.QuoteMeta(setCategoryIfBlankQuery)).
		WithArgs(id, "Food").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	updated, err := store.SetCategoryIfBlank(context.Background(), id, "Food")
	if err != nil {
		t.Fatalf("SetCategoryIfBlank: %v", err)
	}
	if updated {
		t.Fatal("expected no update for an already-categorized record")
	}
}

func TestPostgresStore_TrainingSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "label", "text"}).
		AddRow(uuid.New(), "Food", "Swiggy order snippet").
		AddRow(uuid.New(), "Shopping", "Amazon order snippet")
	mock.ExpectQuery(regexp.QuoteMeta(trainingSetQuery)).WillReturnRows(rows)

	store := NewPostgresStore(mock)
	training, err := store.TrainingSet(context.Background())
	if err != nil {
		t.Fatalf("TrainingSet: %v", err)
	}
	if len(training) != 2 {
		t.Fatalf("expected 2 training rows, got %d", len(training))
	}
	if training[0].Label != "Food" {
		t.Fatalf("unexpected label %q", training[0].Label)
	}
}

func TestPostgresStore_CategoryTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"category", "total"}).
		AddRow("Food", 1250.50).
		AddRow(Uncategorized, 300.0)
	mock.ExpectQuery(regexp.QuoteMeta(categoryTotalsQuery)).WillReturnRows(rows)

	store := NewPostgresStore(mock)
	totals, err := store.CategoryTotals(context.Background())
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	if len(totals) != 2 || totals[0].Category != "Food" || totals[0].Total != 1250.50 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestPostgresStore_Recent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "date", "merchant", "category", "ai_category", "user_category",
		"amount", "currency", "source", "natural_key", "subject", "from_address",
		"raw_snippet", "updated_at",
	}).AddRow(
		uuid.New(), now, "Swiggy", strPtr("Food"), nil, nil,
		450.0, "INR", "sms", nil, nil, nil, "snippet", now,
	)
	mock.ExpectQuery(regexp.QuoteMeta(recentQuery)).
		WithArgs(500).
		WillReturnRows(rows)

	store := NewPostgresStore(mock)
	records, err := store.Recent(context.Background(), 500)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].Merchant != "Swiggy" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if got := records[0].EffectiveCategory(); got != "Food" {
		t.Fatalf("EffectiveCategory = %q, want Food", got)
	}
}

func TestRecord_EffectiveCategory_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected string
	}{
		{"user wins over all", Record{Category: strPtr("Rule"), AICategory: strPtr("AI"), UserCategory: strPtr("User")}, "User"},
		{"ai wins over rule", Record{Category: strPtr("Rule"), AICategory: strPtr("AI")}, "AI"},
		{"rule when alone", Record{Category: strPtr("Rule")}, "Rule"},
		{"blank user ignored", Record{Category: strPtr("Rule"), UserCategory: strPtr("  ")}, "Rule"},
		{"all empty", Record{}, Uncategorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.record.EffectiveCategory(); got != tc.expected {
				t.Errorf("EffectiveCategory() = %q, want %q", got, tc.expected)
			}
		})
	}
}
