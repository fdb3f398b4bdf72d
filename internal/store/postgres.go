package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/ardjee/forms/internal/db"
	"github.com/ardjee/forms/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	cfg := db.PoolConfig{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			cfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			cfg.MinConns = poolCfg.MinConns
		}
		if poolCfg.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = poolCfg.MaxConnLifetime
		}
		if poolCfg.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = poolCfg.MaxConnIdleTime
		}
	}

	pool, err := db.Connect(ctx, connString, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return NewPostgresFromPool(pool), nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contracts (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	contract_type TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'Nieuw',
	monthly_price NUMERIC(10, 2),
	data          JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS installations (
	id          BIGSERIAL PRIMARY KEY,
	address     TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	city        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
CREATE INDEX IF NOT EXISTS idx_contracts_type ON contracts(contract_type);
CREATE INDEX IF NOT EXISTS idx_installations_block ON installations(postal_code, city);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateContract(ctx context.Context, c *model.Contract) error {
	prepareNew(c, time.Now().UTC())

	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contract")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO contracts (id, contract_type, status, monthly_price, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, string(c.Type), string(c.Status), c.MonthlyPrice, data, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert contract %s", c.ID)
}

const pgContractColumns = `id, status, monthly_price::float8, data, created_at, updated_at`

func (s *PostgresStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgContractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanPgContract(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get contract %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	query := `SELECT ` + pgContractColumns + ` FROM contracts WHERE 1=1`
	var args []any
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(` AND contract_type = $%d`, argN)
		args = append(args, string(filter.Type))
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argN)
	args = append(args, listLimit(filter))
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contracts")
	}
	defer rows.Close()

	contracts := []model.Contract{}
	for rows.Next() {
		c, err := scanPgContract(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list contracts")
		}
		contracts = append(contracts, *c)
	}
	return contracts, eris.Wrap(rows.Err(), "postgres: list contracts iterate")
}

func (s *PostgresStore) UpdateContract(ctx context.Context, id string, fn UpdateFunc) (*model.Contract, error) {
	var updated *model.Contract
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+pgContractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id)
		c, err := scanPgContract(row)
		if err != nil {
			return eris.Wrapf(err, "postgres: update contract %s", id)
		}

		if err := fn(c); err != nil {
			return err
		}
		c.ID = id
		c.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(c)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal contract")
		}
		_, err = tx.Exec(ctx,
			`UPDATE contracts SET contract_type = $1, status = $2, monthly_price = $3, data = $4, updated_at = $5 WHERE id = $6`,
			string(c.Type), string(c.Status), c.MonthlyPrice, data, c.UpdatedAt, id,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update contract %s", id)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

var installationColumns = []string{"address", "postal_code", "city", "description", "imported_at"}

func (s *PostgresStore) InsertInstallations(ctx context.Context, records []model.InstallationRecord) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		importedAt := r.ImportedAt
		if importedAt.IsZero() {
			importedAt = now
		}
		rows = append(rows, []any{r.Address, r.PostalCode, r.City, r.Description, importedAt})
	}
	n, err := db.CopyFrom(ctx, s.pool, "installations", installationColumns, rows)
	return n, eris.Wrap(err, "postgres: insert installations")
}

func (s *PostgresStore) CountInstallations(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM installations`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count installations")
}

func (s *PostgresStore) QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, postal_code, city, description, imported_at FROM installations WHERE postal_code = $1 AND city = $2 ORDER BY id`,
		postalCode, city,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query installations")
	}
	defer rows.Close()

	records := []model.InstallationRecord{}
	for rows.Next() {
		var r model.InstallationRecord
		if err := rows.Scan(&r.Address, &r.PostalCode, &r.City, &r.Description, &r.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan installation")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: query installations iterate")
}

func scanPgContract(row pgx.Row) (*model.Contract, error) {
	var (
		id, status           string
		price                *float64
		data                 []byte
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &status, &price, &data, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan contract")
	}
	return decodeContract(id, status, price, data, createdAt, updatedAt)
}
