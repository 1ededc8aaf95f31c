package dbmap

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Repository is a typed CRUD facade over a row store. Every statement it
// runs is synthesized from the record type's mapping table and every result
// set flows back through the row mapper.
type Repository[K comparable, T any] interface {
	Get(ctx context.Context, id K, dest *T, options ...QueryOption) error
	Select(ctx context.Context, filter map[string]any, dest *[]T, options ...QueryOption) error
	Insert(ctx context.Context, value T, options ...QueryOption) error
	InsertAll(ctx context.Context, values []T, options ...QueryOption) error
	Update(ctx context.Context, id K, keyvals map[string]any, options ...QueryOption) error
	Delete(ctx context.Context, ids []K, options ...QueryOption) error
	SQLQuery(ctx context.Context, dest *[]T, sqlStr string, params ParamBag, options ...QueryOption) error
	SQLExec(ctx context.Context, sqlStr string, params ParamBag, options ...QueryOption) (int64, error)
	Begin(ctx context.Context) (Transaction, error)
	EnsureTable(ctx context.Context) error
	GetTableDef() TableDef
}

// dialect is the flavor-specific behavior a repository delegates: error
// classification, conflict handling and DDL column types.
type dialect interface {
	name() string
	wrapError(err error) error
	ignoreConflict(insertSQL string) string
	columnType(fd FieldDef) (string, error)
}

type repository[K comparable, T any] struct {
	db      *sqlx.DB
	td      TableDef
	dialect dialect
}

func newRepository[K comparable, T any](db *sqlx.DB, d dialect, options ...RepositoryOption[T]) (Repository[K, T], error) {
	opt := &repoOption[T]{}
	for _, op := range options {
		op(opt)
	}

	td, err := TableOf[T]()
	if err != nil {
		return nil, err
	}

	repo := &repository[K, T]{db: db, td: td, dialect: d}

	if opt.ensureTable {
		if err := repo.EnsureTable(context.Background()); err != nil {
			return nil, err
		}
	}
	if len(opt.initValues) > 0 {
		if err := repo.InsertAll(context.Background(), opt.initValues, IgnoreDuplicate()); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

func (r *repository[K, T]) GetTableDef() TableDef {
	return r.td
}

func (r *repository[K, T]) Begin(ctx context.Context) (Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, r.dialect.wrapError(err)
	}
	return &sqlTransaction{tx: tx}, nil
}

// store returns the row store the call should run on: the caller's
// transaction when one was passed, the bare connection otherwise.
func (r *repository[K, T]) store(opt *queryOption) RowStore {
	if opt.Tx != nil {
		if tx, ok := opt.Tx.(*sqlTransaction); ok {
			return NewRowStore(tx.tx)
		}
	}
	return NewRowStore(r.db)
}

func (r *repository[K, T]) keyField() (FieldDef, error) {
	if r.td.KeyField == "" {
		return FieldDef{}, fmt.Errorf("%s has no key field", r.td.Name)
	}
	fd, ok := r.td.FieldByColumn(r.td.KeyField)
	if !ok {
		return FieldDef{}, fmt.Errorf("%s: key column %s matches no field", r.td.Name, r.td.KeyField)
	}
	return fd, nil
}

func (r *repository[K, T]) resolveColumns(opt *queryOption) ([]string, error) {
	if len(opt.Selectors) == 0 && strings.TrimSpace(opt.RawColumns) == "" {
		// project the full field-derived column set so mapping stays stable
		return r.td.ColumnNames(), nil
	}
	return ResolveColumns(r.td, opt.Selectors, opt.RawColumns)
}

func (r *repository[K, T]) Get(ctx context.Context, id K, dest *T, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	kfd, err := r.keyField()
	if err != nil {
		return err
	}
	keyVal, err := scalarOf(kfd, reflect.ValueOf(id))
	if err != nil {
		return err
	}

	cols, err := r.resolveColumns(opt)
	if err != nil {
		return err
	}

	qry := BuildSelect(r.td, cols, fmt.Sprintf("WHERE %s = :%s", kfd.Column, kfd.Column), 1)

	rows, err := r.store(opt).Query(ctx, qry, ParamBag{kfd.Column: keyVal})
	if err != nil {
		return r.dialect.wrapError(err)
	}

	it, err := MapRows[T](rows, opt.Warn)
	if err != nil {
		rows.Close()
		return err
	}
	defer it.Close()

	rec, ok := it.Next()
	if !ok {
		if err := it.Err(); err != nil {
			return r.dialect.wrapError(err)
		}
		return fmt.Errorf("%w: %s %v", ErrKeyNotFound, r.td.Name, id)
	}

	*dest = rec
	return nil
}

func (r *repository[K, T]) Select(ctx context.Context, filterMap map[string]any, dest *[]T, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	where := opt.Where
	params := make(ParamBag).Merge(opt.Params)
	if where == "" && len(filterMap) > 0 {
		filter, filterParams, err := BuildFilterWhere(r.td, filterMap)
		if err != nil {
			return err
		}
		where = filter
		params = filterParams.Merge(opt.Params)
	}

	cols, err := r.resolveColumns(opt)
	if err != nil {
		return err
	}

	qry := BuildSelect(r.td, cols, where, 0) + limitOffsetSQL(opt.Limit, opt.Offset)

	rows, err := r.store(opt).Query(ctx, qry, params)
	if err != nil {
		return r.dialect.wrapError(err)
	}

	it, err := MapRows[T](rows, opt.Warn)
	if err != nil {
		rows.Close()
		return err
	}

	out, err := it.All()
	if err != nil {
		return r.dialect.wrapError(err)
	}

	*dest = out
	return nil
}

func (r *repository[K, T]) Insert(ctx context.Context, value T, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	qry, bag, err := BuildInsert(r.td, value, opt.RawColumns, opt.Params)
	if err != nil {
		return err
	}
	if opt.IgnoreDuplicate {
		qry = r.dialect.ignoreConflict(qry)
	}

	if _, err := r.store(opt).Exec(ctx, qry, bag); err != nil {
		return r.dialect.wrapError(err)
	}
	return nil
}

func (r *repository[K, T]) InsertAll(ctx context.Context, values []T, options ...QueryOption) error {
	if len(values) == 0 {
		return fmt.Errorf("values is zero length slice")
	}

	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	ownTx := opt.Tx == nil
	if ownTx {
		tx, err := r.Begin(ctx)
		if err != nil {
			return err
		}
		opt.Tx = tx
		defer tx.Rollback(ctx)
	}

	store := r.store(opt)
	for _, value := range values {
		qry, bag, err := BuildInsert(r.td, value, opt.RawColumns, opt.Params)
		if err != nil {
			return err
		}
		if opt.IgnoreDuplicate {
			qry = r.dialect.ignoreConflict(qry)
		}
		if _, err := store.Exec(ctx, qry, bag); err != nil {
			return r.dialect.wrapError(err)
		}
	}

	if ownTx {
		return opt.Tx.Commit(ctx)
	}
	return nil
}

func (r *repository[K, T]) Update(ctx context.Context, id K, keyvals map[string]any, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	kfd, err := r.keyField()
	if err != nil {
		return err
	}

	params := make(ParamBag, len(keyvals)+1)
	for k, v := range keyvals {
		fd, ok := r.td.FieldByColumn(k)
		if !ok || fd.Column == kfd.Column {
			continue
		}
		params[fd.Column] = v
	}
	if len(params) == 0 {
		return fmt.Errorf("update %s: no updatable columns in keyvals", r.td.Name)
	}

	cols := make([]string, 0, len(params))
	for col := range params {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = :%s", col, col)
	}

	keyVal, err := scalarOf(kfd, reflect.ValueOf(id))
	if err != nil {
		return err
	}
	params[kfd.Column] = keyVal

	qry := fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
		r.td.FullTableName(), strings.Join(sets, ","), kfd.Column, kfd.Column)

	if _, err := r.store(opt).Exec(ctx, qry, params); err != nil {
		return r.dialect.wrapError(err)
	}
	return nil
}

func (r *repository[K, T]) Delete(ctx context.Context, ids []K, options ...QueryOption) error {
	if len(ids) == 0 {
		return nil
	}

	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	kfd, err := r.keyField()
	if err != nil {
		return err
	}

	store := r.store(opt)
	for _, batch := range SplitBatch(ids, 125) {
		keys := make([]any, len(batch))
		for i, id := range batch {
			if keys[i], err = scalarOf(kfd, reflect.ValueOf(id)); err != nil {
				return err
			}
		}

		qry := fmt.Sprintf("DELETE FROM %s WHERE %s IN (:%s)",
			r.td.FullTableName(), kfd.Column, kfd.Column)

		if _, err := store.Exec(ctx, qry, ParamBag{kfd.Column: keys}); err != nil {
			return r.dialect.wrapError(err)
		}
	}

	return nil
}

func (r *repository[K, T]) SQLQuery(ctx context.Context, dest *[]T, sqlStr string, params ParamBag, options ...QueryOption) error {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	rows, err := r.store(opt).Query(ctx, sqlStr, params)
	if err != nil {
		return r.dialect.wrapError(err)
	}

	it, err := MapRows[T](rows, opt.Warn)
	if err != nil {
		rows.Close()
		return err
	}

	out, err := it.All()
	if err != nil {
		return r.dialect.wrapError(err)
	}

	*dest = out
	return nil
}

func (r *repository[K, T]) SQLExec(ctx context.Context, sqlStr string, params ParamBag, options ...QueryOption) (int64, error) {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}

	n, err := r.store(opt).Exec(ctx, sqlStr, params)
	if err != nil {
		return 0, r.dialect.wrapError(err)
	}
	return n, nil
}

func (r *repository[K, T]) EnsureTable(ctx context.Context) error {
	ddl, err := createDDL(r.td, r.dialect)
	if err != nil {
		return err
	}
	if _, err := NewRowStore(r.db).Exec(ctx, ddl, nil); err != nil {
		return r.dialect.wrapError(err)
	}
	return nil
}

func createDDL(td TableDef, d dialect) (string, error) {
	var ddlCols []string
	for _, fd := range td.Fields {
		coltype, err := d.columnType(fd)
		if err != nil {
			return "", err
		}

		col := strings.Builder{}
		fmt.Fprintf(&col, "%s %s", fd.Column, coltype)
		if fd.IsKey {
			col.WriteString(" PRIMARY KEY")
		} else if !fd.Nullable {
			col.WriteString(" NOT NULL")
		}

		ddlCols = append(ddlCols, col.String())
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		td.FullTableName(), strings.Join(ddlCols, ",")), nil
}
