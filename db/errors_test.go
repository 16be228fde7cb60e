package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	require.NoError(t, translateError(nil))

	err := translateError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "escrow_completions_chain_id_escrow_address_key"}))
	require.True(t, IsDuplicate(err))
	require.Contains(t, err.Error(), "escrow_completions_chain_id_escrow_address_key")

	err = translateError(&pq.Error{Code: "23505", Constraint: "outgoing_webhooks_hash_key"})
	require.True(t, IsDuplicate(err))

	err = translateError(&pgconn.PgError{Code: "23503"})
	require.False(t, IsDuplicate(err))

	err = translateError(sql.ErrConnDone)
	require.False(t, IsDuplicate(err))
	require.True(t, errors.Is(err, sql.ErrConnDone))
}
