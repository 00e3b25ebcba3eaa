package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
)

// Drivers soportados por SQLStore.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed_orders (
    order_id            TEXT PRIMARY KEY,
    last_checked_at     TIMESTAMP NOT NULL,
    processed_for_print BOOLEAN NOT NULL DEFAULT 0,
    print_status        TEXT NOT NULL DEFAULT 'pending',
    last_updated_date   TEXT NOT NULL DEFAULT '',
    reprint_count       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_processed_orders_checked ON processed_orders(last_checked_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS processed_orders (
    order_id            TEXT PRIMARY KEY,
    last_checked_at     TIMESTAMPTZ NOT NULL,
    processed_for_print BOOLEAN NOT NULL DEFAULT FALSE,
    print_status        TEXT NOT NULL DEFAULT 'pending',
    last_updated_date   TEXT NOT NULL DEFAULT '',
    reprint_count       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_processed_orders_checked ON processed_orders(last_checked_at);
`

const (
	upsertSQL = `
INSERT INTO processed_orders (order_id, last_checked_at, processed_for_print, print_status, last_updated_date, reprint_count)
VALUES (?, ?, ?, ?, ?, 0)
ON CONFLICT (order_id) DO UPDATE SET
    last_checked_at = excluded.last_checked_at,
    processed_for_print = excluded.processed_for_print,
    print_status = excluded.print_status,
    last_updated_date = excluded.last_updated_date`

	getSQL = `
SELECT order_id, last_checked_at, processed_for_print, print_status, last_updated_date, reprint_count
FROM processed_orders
WHERE order_id = ?`

	incrementSQL = `
UPDATE processed_orders SET reprint_count = reprint_count + 1
WHERE order_id = ?
RETURNING reprint_count`

	listSQL = `
SELECT order_id, last_checked_at, processed_for_print, print_status, last_updated_date, reprint_count
FROM processed_orders
ORDER BY last_checked_at DESC, order_id
LIMIT ?`

	deleteAllSQL = `DELETE FROM processed_orders`
)

// SQLStore es el ledger sobre database/sql (SQLite o Postgres).
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open abre la base, verifica la conexión y crea la tabla si no existe.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite admite un solo escritor
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger db: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	stmts := postgresSchema
	if s.driver == DriverSQLite {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := s.db.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
		stmts = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, stmts); err != nil {
		return fmt.Errorf("failed to init ledger schema: %w", err)
	}
	return nil
}

// rebind pasa los ? a $n para Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	var status string
	if err := row.Scan(&e.OrderID, &e.LastCheckedAt, &e.ProcessedForPrint, &status, &e.LastKnownUpdatedDate, &e.ReprintCount); err != nil {
		return models.LedgerEntry{}, err
	}
	e.PrintStatus = models.PrintStatus(status)
	e.LastCheckedAt = e.LastCheckedAt.UTC()
	return e, nil
}

func (s *SQLStore) Get(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, s.rebind(getSQL), orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry %s: %w", orderID, err)
	}
	return &e, nil
}

func (s *SQLStore) Upsert(ctx context.Context, orderID string, mark Mark) error {
	_, err := s.db.ExecContext(ctx, s.rebind(upsertSQL),
		orderID, mark.CheckedAt.UTC(), mark.ProcessedForPrint, string(mark.PrintStatus), mark.UpdatedDate,
	)
	if err != nil {
		return fmt.Errorf("upsert ledger entry %s: %w", orderID, err)
	}
	return nil
}

func (s *SQLStore) IncrementReprintCount(ctx context.Context, orderID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(incrementSQL), orderID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("increment reprint count for %s: %w", orderID, ErrNotFound)
		}
		return 0, fmt.Errorf("increment reprint count for %s: %w", orderID, err)
	}
	return count, nil
}

func (s *SQLStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteAllSQL)
	if err != nil {
		return 0, fmt.Errorf("delete ledger entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(listSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
