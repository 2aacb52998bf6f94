package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/models"
)

func openTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"), logger.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleProduct(id string, score int, scannedAt time.Time) *models.Product {
	return &models.Product{
		ID:          id,
		Barcode:     id,
		Name:        "Granola " + id,
		Brand:       "Acme",
		Ingredients: []string{"oats", "honey"},
		NutritionFacts: models.NutritionFacts{
			Calories:     420,
			Sugars:       12.5,
			DietaryFiber: 6,
			Protein:      9,
			ServingSize:  "100g",
		},
		HealthScore: score,
		HealthAnalysis: models.HealthAnalysis{
			Score:           score,
			Category:        models.CategoryGood,
			PositiveFactors: []string{"Good fiber content"},
			NegativeFactors: []string{"Low protein content (9g)"},
			Recommendations: []string{},
			Warnings:        []string{},
		},
		ScannedAt: scannedAt,
	}
}

func TestProduct_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)

	want := sampleProduct("4006381333931", 74, now)
	want.ImageURL = "https://images.example/granola.jpg"
	if err := db.SaveProduct(ctx, want); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}

	got, err := db.GetProduct(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got == nil {
		t.Fatal("GetProduct returned nil")
	}
	if !got.ScannedAt.Equal(want.ScannedAt) {
		t.Errorf("ScannedAt = %v, want %v", got.ScannedAt, want.ScannedAt)
	}
	got.ScannedAt = want.ScannedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetProduct = %+v\nwant %+v", got, want)
	}
}

func TestGetProduct_Missing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetProduct(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("GetProduct(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestSaveProduct_Upsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := sampleProduct("123", 50, time.Now())
	if err := db.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}
	p.HealthScore = 90
	p.Name = "Granola v2"
	if err := db.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct (update): %v", err)
	}

	got, err := db.GetProduct(ctx, "123")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.HealthScore != 90 || got.Name != "Granola v2" {
		t.Errorf("upsert not applied: %+v", got)
	}
}

func TestScanHistory_NewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := sampleProduct("p1", 60, base)
	if err := db.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}
	for i, id := range []string{"h1", "h2", "h3"} {
		entry := &models.ScanHistory{ID: id, ProductID: p.ID, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := db.SaveScanHistory(ctx, entry); err != nil {
			t.Fatalf("SaveScanHistory %s: %v", id, err)
		}
	}

	all, err := db.GetScanHistory(ctx, 0)
	if err != nil {
		t.Fatalf("GetScanHistory: %v", err)
	}
	var ids []string
	for _, h := range all {
		ids = append(ids, h.ID)
		if h.Product == nil || h.Product.ID != "p1" || h.ProductID != "p1" {
			t.Errorf("history %s: product not joined: %+v", h.ID, h.Product)
		}
	}
	if want := []string{"h3", "h2", "h1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}

	limited, err := db.GetScanHistory(ctx, 2)
	if err != nil {
		t.Fatalf("GetScanHistory(2): %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "h3" {
		t.Errorf("limited = %d entries", len(limited))
	}
}

func TestScanHistory_ProductFromEntry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p := sampleProduct("p1", 60, time.Now())
	if err := db.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}

	entry := &models.ScanHistory{ID: "h1", Product: p}
	if err := db.SaveScanHistory(ctx, entry); err != nil {
		t.Fatalf("SaveScanHistory: %v", err)
	}
	if entry.ProductID != "p1" || entry.Timestamp.IsZero() {
		t.Errorf("entry not filled in: %+v", entry)
	}
}

func TestScanHistory_UnknownProductRejected(t *testing.T) {
	db := openTestDB(t)
	err := db.SaveScanHistory(context.Background(), &models.ScanHistory{ID: "h1", ProductID: "ghost"})
	if err == nil {
		t.Error("expected foreign key error")
	}
}

func TestGetScanHistoryByIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		p := sampleProduct("p-"+id, 10*(i+1), base)
		if err := db.SaveProduct(ctx, p); err != nil {
			t.Fatalf("SaveProduct: %v", err)
		}
		entry := &models.ScanHistory{ID: id, ProductID: p.ID, Timestamp: base.Add(time.Duration(i) * time.Second)}
		if err := db.SaveScanHistory(ctx, entry); err != nil {
			t.Fatalf("SaveScanHistory: %v", err)
		}
	}

	got, err := db.GetScanHistoryByIDs(ctx, []string{"a", "c", "zzz"})
	if err != nil {
		t.Fatalf("GetScanHistoryByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("got %d entries: %+v", len(got), got)
	}

	none, err := db.GetScanHistoryByIDs(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("GetScanHistoryByIDs(nil) = %v, %v", none, err)
	}
}

func TestDeleteAndClearHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := sampleProduct("p1", 60, time.Now())
	if err := db.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}
	for _, id := range []string{"h1", "h2", "h3"} {
		if err := db.SaveScanHistory(ctx, &models.ScanHistory{ID: id, ProductID: p.ID}); err != nil {
			t.Fatalf("SaveScanHistory: %v", err)
		}
	}

	if err := db.DeleteScanHistory(ctx, "h2"); err != nil {
		t.Fatalf("DeleteScanHistory: %v", err)
	}
	if err := db.DeleteScanHistory(ctx, "h2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}

	n, err := db.ClearAllHistory(ctx)
	if err != nil {
		t.Fatalf("ClearAllHistory: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d entries, want 2", n)
	}

	left, err := db.GetScanHistory(ctx, 0)
	if err != nil || len(left) != 0 {
		t.Errorf("history after clear = %v, %v", left, err)
	}
	// Products outlive their history.
	if got, _ := db.GetProduct(ctx, "p1"); got == nil {
		t.Error("product deleted along with history")
	}
}
