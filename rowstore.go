package dbmap

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// RowStore is the capability the mapping engine consumes from its
// environment: statement execution against rows of untyped scalars.
// Persistence format, connection lifecycle and serialization of concurrent
// statements are the store's concern, not the engine's.
type RowStore interface {
	Exec(ctx context.Context, query string, params ParamBag) (int64, error)
	QueryScalar(ctx context.Context, query string, params ParamBag) (any, error)
	Query(ctx context.Context, query string, params ParamBag) (Rows, error)
}

// Transaction is an explicit, non-nested unit of work on a row store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type sqlTransaction struct {
	tx *sqlx.Tx
}

func (st *sqlTransaction) Commit(_ context.Context) error {
	return st.tx.Commit()
}

func (st *sqlTransaction) Rollback(_ context.Context) error {
	return st.tx.Rollback()
}

// sqlStore implements RowStore over any sqlx execution context (*sqlx.DB or
// *sqlx.Tx). Named parameters are expanded, slice values are flattened for
// IN clauses, and placeholders are rebound to the driver's style.
type sqlStore struct {
	ext sqlx.ExtContext
}

// NewRowStore wraps a sqlx database or transaction as a RowStore.
func NewRowStore(ext sqlx.ExtContext) RowStore {
	return &sqlStore{ext: ext}
}

func (s *sqlStore) bind(query string, params ParamBag) (string, []any, error) {
	if len(params) == 0 {
		return s.ext.Rebind(query), nil, nil
	}

	qry, args, err := sqlx.Named(query, map[string]any(params))
	if err != nil {
		return "", nil, err
	}

	qry, args, err = sqlx.In(qry, args...)
	if err != nil {
		return "", nil, err
	}

	return s.ext.Rebind(qry), args, nil
}

func (s *sqlStore) Exec(ctx context.Context, query string, params ParamBag) (int64, error) {
	qry, args, err := s.bind(query, params)
	if err != nil {
		return 0, err
	}

	res, err := s.ext.ExecContext(ctx, qry, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (s *sqlStore) QueryScalar(ctx context.Context, query string, params ParamBag) (any, error) {
	rows, err := s.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	row, ok := rows.Next()
	if !ok {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoRow
	}
	if len(row.Values) == 0 {
		return nil, ErrNoRow
	}

	return row.Values[0], nil
}

func (s *sqlStore) Query(ctx context.Context, query string, params ParamBag) (Rows, error) {
	qry, args, err := s.bind(query, params)
	if err != nil {
		return nil, err
	}

	rows, err := s.ext.QueryxContext(ctx, qry, args...)
	if err != nil {
		return nil, err
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}

	return &sqlRows{rows: rows, cols: cols}, nil
}

type sqlRows struct {
	rows *sqlx.Rows
	cols []string
	err  error
}

func (r *sqlRows) Next() (Row, bool) {
	if r.err != nil || !r.rows.Next() {
		return Row{}, false
	}

	vals := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = err
		return Row{}, false
	}

	// drivers may reuse byte buffers between rows
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = append([]byte(nil), b...)
		}
	}

	return Row{Columns: r.cols, Values: vals}, true
}

func (r *sqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}
