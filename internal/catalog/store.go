// Package catalog persists products, print job history, and printer
// settings in an embedded SQLite database. Barcode generation and
// product insertion share one transaction so the derived sequence can
// never drift from the inserted rows.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/estrelametais/label-engine/internal/barcode"
	"github.com/estrelametais/label-engine/internal/printer"
	"github.com/estrelametais/label-engine/internal/util"
)

// Product is a catalog entry. The barcode is system-generated at
// creation and immutable afterwards.
type Product struct {
	ID          int64  `db:"id" json:"id"`
	ProductCode string `db:"product_code" json:"product_code"`
	Name        string `db:"name" json:"name"`
	NameShort   string `db:"name_short" json:"name_short"`
	Barcode     string `db:"barcode" json:"barcode"`
	Description string `db:"description" json:"description,omitempty"`
	CreatedAt   string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt   string `db:"updated_at" json:"updated_at,omitempty"`
}

// PrintJob is a historical record of one print attempt.
type PrintJob struct {
	ID          int64  `db:"id" json:"id"`
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	ProductCode string `db:"product_code" json:"product_code"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	Status      string `db:"status" json:"status"`
}

// Print job statuses.
const (
	JobPending   = "pending"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

var (
	// ErrProductNotFound is returned for lookups of missing products.
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateCode is returned when a product code is already taken.
	ErrDuplicateCode = errors.New("product code already exists")
)

const maxProductCodeLen = 4

// Store wraps the SQLite database.
type Store struct {
	db     *sqlx.DB
	prefix string
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_code TEXT NOT NULL,
	name TEXT NOT NULL,
	name_short TEXT NOT NULL,
	barcode TEXT NOT NULL UNIQUE,
	description TEXT DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS print_jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER,
	product_name TEXT NOT NULL,
	product_code TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	status TEXT DEFAULT 'pending',
	FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS printer_settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	darkness INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	speed INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// New opens (or creates) the database at path and applies the schema.
// The prefix seeds all generated barcodes.
func New(path, prefix string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite handles one writer at a time; a larger pool just queues
	// on the file lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, prefix: prefix}
	if err := s.migrateSettingsColumns(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateSettingsColumns back-fills columns added after the first
// release: the transport port and, later, the dialect and baud rate.
func (s *Store) migrateSettingsColumns() error {
	for col, ddl := range map[string]string{
		"port":    `ALTER TABLE printer_settings ADD COLUMN port TEXT NOT NULL DEFAULT 'USB'`,
		"dialect": `ALTER TABLE printer_settings ADD COLUMN dialect TEXT NOT NULL DEFAULT 'pplb'`,
		"baud":    `ALTER TABLE printer_settings ADD COLUMN baud INTEGER NOT NULL DEFAULT 9600`,
	} {
		var count int
		err := s.db.Get(&count,
			`SELECT COUNT(*) FROM pragma_table_info('printer_settings') WHERE name = ?`, col)
		if err != nil {
			return fmt.Errorf("inspect printer_settings: %w", err)
		}
		if count == 0 {
			if _, err := s.db.Exec(ddl); err != nil {
				return fmt.Errorf("add %s column: %w", col, err)
			}
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func validateProductCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("product code must not be empty")
	}
	if len(code) > maxProductCodeLen {
		return fmt.Errorf("product code must be at most %d characters", maxProductCodeLen)
	}
	return nil
}

// CreateProduct validates the payload, generates the next barcode, and
// inserts the row — barcode derivation and insertion are one
// transaction, so concurrent creations cannot reuse a sequence.
func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	if err := validateProductCode(p.ProductCode); err != nil {
		return err
	}

	unique, err := s.productCodeUnique(ctx, p.ProductCode, 0)
	if err != nil {
		return err
	}
	if !unique {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, p.ProductCode)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last string
	err = tx.GetContext(ctx, &last,
		`SELECT barcode FROM products ORDER BY id DESC LIMIT 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read last barcode: %w", err)
	}

	code, err := barcode.Generate(last, s.prefix)
	if err != nil {
		return err
	}
	util.BarcodesGeneratedTotal.Inc()

	now := time.Now().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO products (product_code, name, name_short, barcode, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ProductCode, p.Name, p.NameShort, code, p.Description, now, now)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit product: %w", err)
	}

	p.ID = id
	p.Barcode = code
	p.CreatedAt = now
	p.UpdatedAt = now
	util.ProductsCreatedTotal.Inc()
	return nil
}

// GetProduct returns one product by ID.
func (s *Store) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := s.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProducts returns the whole catalog, newest first.
func (s *Store) GetProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.db.SelectContext(ctx, &products,
		`SELECT * FROM products ORDER BY id DESC`)
	return products, err
}

// UpdateProduct updates the mutable fields of a product. The barcode is
// immutable once assigned and is never touched here.
func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	if err := validateProductCode(p.ProductCode); err != nil {
		return err
	}

	unique, err := s.productCodeUnique(ctx, p.ProductCode, p.ID)
	if err != nil {
		return err
	}
	if !unique {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, p.ProductCode)
	}

	now := time.Now().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET product_code = ?, name = ?, name_short = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		p.ProductCode, p.Name, p.NameShort, p.Description, now, p.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, p.ID)
	}
	p.UpdatedAt = now
	return nil
}

// DeleteProduct removes a product. Deleting the newest row hands its
// sequence number back to the next creation; that reuse is documented
// behavior, inherited from deriving the sequence from stored data.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return nil
}

// LastBarcode returns the most recently inserted barcode, or "" for an
// empty catalog.
func (s *Store) LastBarcode(ctx context.Context) (string, error) {
	var last string
	err := s.db.GetContext(ctx, &last,
		`SELECT barcode FROM products ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return last, err
}

// CurrentSequence reports the sequence number of the newest barcode,
// or 0 for an empty catalog.
func (s *Store) CurrentSequence(ctx context.Context) (int, error) {
	last, err := s.LastBarcode(ctx)
	if err != nil {
		return 0, err
	}
	next, err := barcode.NextSequence(last)
	if err != nil {
		// The space is full; the current sequence is the ceiling.
		if errors.Is(err, barcode.ErrSequenceExhausted) {
			return 999, nil
		}
		return 0, err
	}
	return next - 1, nil
}

func (s *Store) productCodeUnique(ctx context.Context, code string, excludeID int64) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM products WHERE product_code = ? AND id != ?`, code, excludeID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// RecordPrintJob inserts one history row per printed label.
func (s *Store) RecordPrintJob(ctx context.Context, productID int64, name, code, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO print_jobs (product_id, product_name, product_code, created_at, status)
		 VALUES (?, ?, ?, ?, ?)`,
		productID, name, code, time.Now().Format(time.RFC3339), status)
	return err
}

// PrintHistory returns all recorded print jobs, newest first.
func (s *Store) PrintHistory(ctx context.Context) ([]PrintJob, error) {
	var jobs []PrintJob
	err := s.db.SelectContext(ctx, &jobs,
		`SELECT id, product_id, product_name, product_code, created_at, status
		 FROM print_jobs ORDER BY created_at DESC, id DESC`)
	return jobs, err
}

// SavePrinterSettings replaces the persisted printer configuration.
// An already-open connection keeps the config it was opened with.
func (s *Store) SavePrinterSettings(ctx context.Context, cfg printer.Config) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM printer_settings`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO printer_settings (darkness, width, height, speed, port, dialect, baud)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cfg.Darkness, cfg.Width, cfg.Height, cfg.Speed, cfg.Port, cfg.Dialect, cfg.Baud); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadPrinterSettings returns the persisted configuration, or the
// defaults when none has been saved yet.
func (s *Store) LoadPrinterSettings(ctx context.Context) (printer.Config, error) {
	row := struct {
		Darkness int    `db:"darkness"`
		Width    int    `db:"width"`
		Height   int    `db:"height"`
		Speed    int    `db:"speed"`
		Port     string `db:"port"`
		Dialect  string `db:"dialect"`
		Baud     int    `db:"baud"`
	}{}

	err := s.db.GetContext(ctx, &row,
		`SELECT darkness, width, height, speed, port, dialect, baud
		 FROM printer_settings LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return printer.DefaultConfig(), nil
	}
	if err != nil {
		return printer.Config{}, err
	}

	return printer.Config{
		Darkness: row.Darkness,
		Width:    row.Width,
		Height:   row.Height,
		Speed:    row.Speed,
		Port:     row.Port,
		Dialect:  row.Dialect,
		Baud:     row.Baud,
	}, nil
}
