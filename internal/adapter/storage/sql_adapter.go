package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS retail_outlets (
		outlet_id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		item_id VARCHAR(64) NOT NULL PRIMARY KEY,
		outlet_id VARCHAR(64) NOT NULL,
		item_name VARCHAR(255) NOT NULL,
		price_cents BIGINT NOT NULL,
		stock_count INT NOT NULL,
		restock_threshold INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		CONSTRAINT chk_stock_non_negative CHECK (stock_count >= 0),
		CONSTRAINT fk_items_outlet FOREIGN KEY (outlet_id) REFERENCES retail_outlets (outlet_id)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id VARCHAR(64) NOT NULL PRIMARY KEY,
		checkout_id VARCHAR(64) NOT NULL,
		total_amount_cents BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		transaction_id VARCHAR(64) NOT NULL,
		item_id VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		price_at_sale_cents BIGINT NOT NULL,
		PRIMARY KEY (transaction_id, item_id),
		CONSTRAINT fk_sale_items_tx FOREIGN KEY (transaction_id) REFERENCES transactions (transaction_id)
	)`,
}

// SQLAdapter is both the catalog store and the sales ledger. Queries are
// written with ? placeholders and rebound for the connected driver.
type SQLAdapter struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLAdapter(db *sqlx.DB) *SQLAdapter {
	return &SQLAdapter{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Open connects to mysql, pgx (Postgres) or sqlite and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates the schema if it does not exist.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (a *SQLAdapter) Close() error {
	return a.db.Close()
}
