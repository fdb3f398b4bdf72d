package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var installationColumns = []string{"address", "postal_code", "city", "description"}

func TestCopyFrom_NoRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "installations", installationColumns, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"installations"}, installationColumns).WillReturnResult(2)

	rows := [][]any{
		{"Kerkstraat 12", "1234AB", "AMSTERDAM", "Ketel zolder"},
		{"Dorpsweg 4", "1234AB", "AMSTERDAM", "Warmtepomp tuin"},
	}
	n, err := CopyFrom(context.Background(), mock, "installations", installationColumns, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"installations"}, installationColumns).WillReturnError(errors.New("disk full"))

	_, err = CopyFrom(context.Background(), mock, "installations", installationColumns, [][]any{{"a", "b", "c", "d"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into installations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_Commits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE contracts").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = InTx(context.Background(), mock, func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(), "UPDATE contracts SET status = 'Actief'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("not found")
	err = InTx(context.Background(), mock, func(pgx.Tx) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	err = InTx(context.Background(), mock, func(pgx.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not a url", PoolConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database url")
}
