package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a delete matches no row.
var ErrNotFound = errors.New("not found")

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB interface defines the methods our database should implement
type DB interface {
	SaveProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SaveScanHistory(ctx context.Context, entry *models.ScanHistory) error
	GetScanHistory(ctx context.Context, limit int) ([]*models.ScanHistory, error)
	GetScanHistoryByIDs(ctx context.Context, ids []string) ([]*models.ScanHistory, error)
	DeleteScanHistory(ctx context.Context, id string) error
	ClearAllHistory(ctx context.Context) (int64, error)
	Close() error
}

// SQLiteDB implements the DB interface
type SQLiteDB struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string, log *logger.Logger) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	log.Info("database: schema initialized", "path", dbPath)
	return &SQLiteDB{db: db, log: log}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// SaveProduct inserts a product or replaces the stored copy with the same id.
func (s *SQLiteDB) SaveProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (
			id, barcode, name, brand, ingredients, nutrition_facts,
			health_score, health_analysis, image_url, scanned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			barcode = excluded.barcode,
			name = excluded.name,
			brand = excluded.brand,
			ingredients = excluded.ingredients,
			nutrition_facts = excluded.nutrition_facts,
			health_score = excluded.health_score,
			health_analysis = excluded.health_analysis,
			image_url = excluded.image_url,
			scanned_at = excluded.scanned_at
	`

	if p.ScannedAt.IsZero() {
		p.ScannedAt = time.Now()
	}

	ingredients, err := json.Marshal(nonNil(p.Ingredients))
	if err != nil {
		return fmt.Errorf("error encoding ingredients: %w", err)
	}
	facts, err := json.Marshal(p.NutritionFacts)
	if err != nil {
		return fmt.Errorf("error encoding nutrition facts: %w", err)
	}
	analysis, err := json.Marshal(p.HealthAnalysis)
	if err != nil {
		return fmt.Errorf("error encoding health analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Barcode, p.Name, p.Brand,
		string(ingredients), string(facts),
		p.HealthScore, string(analysis),
		nullString(p.ImageURL), formatTime(p.ScannedAt),
	)
	if err != nil {
		return fmt.Errorf("error saving product %s: %w", p.ID, err)
	}
	return nil
}

// GetProduct returns the product with the given id, or nil if there is none.
func (s *SQLiteDB) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `
		SELECT id, barcode, name, brand, ingredients, nutrition_facts,
			health_score, health_analysis, image_url, scanned_at
		FROM products WHERE id = ?
	`

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SaveScanHistory records a scan of an already saved product.
func (s *SQLiteDB) SaveScanHistory(ctx context.Context, entry *models.ScanHistory) error {
	query := `INSERT INTO scan_history (id, product_id, timestamp) VALUES (?, ?, ?)`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ProductID == "" && entry.Product != nil {
		entry.ProductID = entry.Product.ID
	}

	_, err := s.db.ExecContext(ctx, query, entry.ID, entry.ProductID, formatTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("error saving scan history %s: %w", entry.ID, err)
	}
	return nil
}

const historySelect = `
	SELECT sh.id, sh.timestamp,
		p.id, p.barcode, p.name, p.brand, p.ingredients, p.nutrition_facts,
		p.health_score, p.health_analysis, p.image_url, p.scanned_at
	FROM scan_history sh
	JOIN products p ON sh.product_id = p.id
`

// GetScanHistory returns the most recent scans with their products, newest
// first. A limit of zero or less returns everything.
func (s *SQLiteDB) GetScanHistory(ctx context.Context, limit int) ([]*models.ScanHistory, error) {
	query := historySelect + ` ORDER BY sh.timestamp DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryHistory(ctx, query, args...)
}

// GetScanHistoryByIDs returns the listed scans, newest first. Unknown ids are
// skipped.
func (s *SQLiteDB) GetScanHistoryByIDs(ctx context.Context, ids []string) ([]*models.ScanHistory, error) {
	if len(ids) == 0 {
		return []*models.ScanHistory{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := historySelect + ` WHERE sh.id IN (` + placeholders + `) ORDER BY sh.timestamp DESC`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryHistory(ctx, query, args...)
}

func (s *SQLiteDB) queryHistory(ctx context.Context, query string, args ...any) ([]*models.ScanHistory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*models.ScanHistory{}
	for rows.Next() {
		var (
			entry     models.ScanHistory
			timestamp string
		)
		p, err := scanProduct(rows, &entry.ID, &timestamp)
		if err != nil {
			return nil, err
		}
		entry.Timestamp, err = parseTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("error parsing timestamp of %s: %w", entry.ID, err)
		}
		entry.ProductID = p.ID
		entry.Product = p
		results = append(results, &entry)
	}
	return results, rows.Err()
}

// DeleteScanHistory removes one history entry. The product row is kept.
func (s *SQLiteDB) DeleteScanHistory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting scan history %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearAllHistory removes every history entry and reports how many were removed.
func (s *SQLiteDB) ClearAllHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_history`)
	if err != nil {
		return 0, fmt.Errorf("error clearing scan history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads the product columns, after any leading destinations.
func scanProduct(row rowScanner, leading ...any) (*models.Product, error) {
	var (
		p                                   models.Product
		ingredients, facts, analysis, stamp string
		imageURL                            sql.NullString
	)
	dest := append(leading,
		&p.ID, &p.Barcode, &p.Name, &p.Brand, &ingredients, &facts,
		&p.HealthScore, &analysis, &imageURL, &stamp,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ingredients), &p.Ingredients); err != nil {
		return nil, fmt.Errorf("error decoding ingredients of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(facts), &p.NutritionFacts); err != nil {
		return nil, fmt.Errorf("error decoding nutrition facts of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(analysis), &p.HealthAnalysis); err != nil {
		return nil, fmt.Errorf("error decoding health analysis of %s: %w", p.ID, err)
	}
	p.ImageURL = imageURL.String

	scannedAt, err := parseTime(stamp)
	if err != nil {
		return nil, fmt.Errorf("error parsing scanned_at of %s: %w", p.ID, err)
	}
	p.ScannedAt = scannedAt
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
