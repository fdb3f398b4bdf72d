package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ardjee/forms/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection: SQLite has a single writer, and pragmas are per
	// connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contracts (
	id            TEXT PRIMARY KEY,
	contract_type TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'Nieuw',
	monthly_price REAL,
	data          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS installations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	address     TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	city        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
CREATE INDEX IF NOT EXISTS idx_contracts_type ON contracts(contract_type);
CREATE INDEX IF NOT EXISTS idx_installations_block ON installations(postal_code, city);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateContract(ctx context.Context, c *model.Contract) error {
	prepareNew(c, time.Now().UTC())

	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contract")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contracts (id, contract_type, status, monthly_price, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Type), string(c.Status), nullPrice(c.MonthlyPrice), string(data), c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert contract %s", c.ID)
}

const sqliteContractColumns = `id, status, monthly_price, data, created_at, updated_at`

func (s *SQLiteStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteContractColumns+` FROM contracts WHERE id = ?`, id)
	c, err := scanSQLiteContract(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contract %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	query := `SELECT ` + sqliteContractColumns + ` FROM contracts WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND contract_type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contracts")
	}
	defer rows.Close()

	contracts := []model.Contract{}
	for rows.Next() {
		c, err := scanSQLiteContract(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list contracts")
		}
		contracts = append(contracts, *c)
	}
	return contracts, eris.Wrap(rows.Err(), "sqlite: list contracts iterate")
}

func (s *SQLiteStore) UpdateContract(ctx context.Context, id string, fn UpdateFunc) (*model.Contract, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `SELECT `+sqliteContractColumns+` FROM contracts WHERE id = ?`, id)
	c, err := scanSQLiteContract(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update contract %s", id)
	}

	if err := fn(c); err != nil {
		return nil, err
	}
	c.ID = id
	c.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal contract")
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE contracts SET contract_type = ?, status = ?, monthly_price = ?, data = ?, updated_at = ? WHERE id = ?`,
		string(c.Type), string(c.Status), nullPrice(c.MonthlyPrice), string(data), c.UpdatedAt, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update contract %s", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return c, nil
}

func (s *SQLiteStore) InsertInstallations(ctx context.Context, records []model.InstallationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO installations (address, postal_code, city, description, imported_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert installation")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		importedAt := r.ImportedAt
		if importedAt.IsZero() {
			importedAt = now
		}
		if _, err := stmt.ExecContext(ctx, r.Address, r.PostalCode, r.City, r.Description, importedAt); err != nil {
			return 0, eris.Wrap(err, "sqlite: insert installation")
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit installations")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) CountInstallations(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM installations`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count installations")
}

func (s *SQLiteStore) QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, postal_code, city, description, imported_at FROM installations WHERE postal_code = ? AND city = ? ORDER BY id`,
		postalCode, city,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query installations")
	}
	defer rows.Close()

	records := []model.InstallationRecord{}
	for rows.Next() {
		var r model.InstallationRecord
		if err := rows.Scan(&r.Address, &r.PostalCode, &r.City, &r.Description, &r.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan installation")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: query installations iterate")
}

// helpers

// prepareNew fills the metadata of a contract that is about to be inserted.
func prepareNew(c *model.Contract, now time.Time) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.StatusNew
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func nullPrice(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteContract(row scannable) (*model.Contract, error) {
	var (
		id, status, data     string
		price                sql.NullFloat64
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &status, &price, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan contract")
	}

	var p *float64
	if price.Valid {
		p = &price.Float64
	}
	return decodeContract(id, status, p, []byte(data), createdAt, updatedAt)
}

// decodeContract rebuilds a contract from its JSON document. The indexed
// columns are authoritative over the copies inside the document.
func decodeContract(id, status string, price *float64, data []byte, createdAt, updatedAt time.Time) (*model.Contract, error) {
	var c model.Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(err, "unmarshal contract %s", id)
	}
	c.ID = id
	c.Status = model.Status(status)
	c.MonthlyPrice = price
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = updatedAt.UTC()
	return &c, nil
}
