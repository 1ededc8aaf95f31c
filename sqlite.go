package dbmap

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// OpenSqlite opens an embedded SQLite database file. Use ":memory:" for a
// throwaway in-memory store.
func OpenSqlite(dsn string) (*sqlx.DB, error) {
	return sqlx.Open("sqlite3", dsn)
}

// CreateSqliteRepository builds a Repository for T backed by SQLite.
func CreateSqliteRepository[K comparable, T any](db *sqlx.DB, options ...RepositoryOption[T]) (Repository[K, T], error) {
	return newRepository[K, T](db, sqliteDialect{}, options...)
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w. %s", ErrNoRow, err)
	}

	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err)
		}
	}

	return err
}

func (sqliteDialect) ignoreConflict(insertSQL string) string {
	if strings.HasPrefix(insertSQL, "INSERT ") {
		return "INSERT OR IGNORE " + strings.TrimPrefix(insertSQL, "INSERT ")
	}
	return insertSQL
}

func (sqliteDialect) columnType(fd FieldDef) (string, error) {
	switch fd.Category {
	case CategoryIdentifier:
		return "TEXT", nil
	case CategoryTimestamp:
		return "TIMESTAMP", nil
	case CategoryInteger:
		return "INTEGER", nil
	case CategoryEnum:
		if fd.Base.Kind() == reflect.String {
			return "TEXT", nil
		}
		return "INTEGER", nil
	}

	switch fd.Base.Kind() {
	case reflect.String:
		return "TEXT", nil
	case reflect.Float32, reflect.Float64:
		return "REAL", nil
	case reflect.Bool:
		return "INTEGER", nil
	case reflect.Slice:
		if fd.Base.Elem().Kind() == reflect.Uint8 {
			return "BLOB", nil
		}
	}

	return "", fmt.Errorf("unknown sqlite datatype for Go type %s", fd.Base)
}

// LoadCSVIntoSqlite bulk-inserts CSV input into the repository's table. With
// a header line the header names pick the column set (each must match a
// mapped field); without one the full field-derived column set is assumed,
// in declaration order. Values are bound as trimmed text and coerced by the
// store.
func LoadCSVIntoSqlite[K comparable, T any](ctx context.Context, repo Repository[K, T], csvInput io.Reader, withHeader bool, tx ...Transaction) error {
	sq, ok := repo.(*repository[K, T])
	if !ok {
		return fmt.Errorf("repository is not sqlite-backed")
	}

	td := sq.td
	rd := csv.NewReader(csvInput)

	cols := td.ColumnNames()
	if withHeader {
		line, err := rd.Read()
		if err != nil {
			return err
		}

		cols = make([]string, len(line))
		for i, name := range line {
			fd, ok := td.FieldByColumn(strings.TrimSpace(name))
			if !ok {
				return fmt.Errorf("csv header %q matches no column of %s", name, td.Name)
			}
			cols[i] = fd.Column
		}
	}

	placeholders := Map(cols, func(col string) string {
		return ":" + col
	})
	qry := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		td.FullTableName(), strings.Join(cols, ","), strings.Join(placeholders, ","))

	opt := &queryOption{}
	if len(tx) > 0 {
		opt.Tx = tx[0]
	}
	ownTx := opt.Tx == nil
	if ownTx {
		btx, err := sq.Begin(ctx)
		if err != nil {
			return err
		}
		opt.Tx = btx
		defer btx.Rollback(ctx)
	}

	store := sq.store(opt)
	for {
		line, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(line) != len(cols) {
			return fmt.Errorf("csv row has %d values, want %d", len(line), len(cols))
		}

		bag := make(ParamBag, len(cols))
		for i, val := range line {
			bag[cols[i]] = strings.TrimSpace(val)
		}

		if _, err := store.Exec(ctx, qry, bag); err != nil {
			return sq.dialect.wrapError(err)
		}
	}

	if ownTx {
		return opt.Tx.Commit(ctx)
	}
	return nil
}
