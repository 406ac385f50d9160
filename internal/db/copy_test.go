package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = []string{"data_id", "answer"}

func TestCopyRows_EmptyRows(t *testing.T) {
	n, err := CopyRows(context.TODO(), nil, "evidence", testColumns, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyRows_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"evidence"}, testColumns).WillReturnResult(3)

	rows := [][]any{{int64(1), "x"}, {int64(1), "y"}, {int64(1), "z"}}
	n, err := CopyRows(context.Background(), mock, "evidence", testColumns, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_RowWidthMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = CopyRows(context.Background(), mock, "evidence", testColumns, [][]any{{int64(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 1 values, want 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_ShortCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"evidence"}, testColumns).WillReturnResult(1)

	n, err := CopyRows(context.Background(), mock, "evidence", testColumns, [][]any{{int64(1), "x"}, {int64(1), "y"}})
	require.Error(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, err.Error(), "wrote 1 of 2 rows")
}

func TestCopyRows_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"evidence"}, testColumns).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyRows(context.Background(), mock, "evidence", testColumns, [][]any{{int64(1), "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: copy evidence")
	assert.NoError(t, mock.ExpectationsWereMet())
}
