package dbmap

import (
	"reflect"
	"strings"
)

// Row is one untyped result record: column names and scalar values in store
// order. Rows are ephemeral; they live only while a result is consumed.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column, exact match.
func (r Row) Get(col string) (any, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return nil, false
}

// indexFold returns the first column case-insensitively matching name.
func (r Row) indexFold(name string) (int, bool) {
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return 0, false
}

// Rows is a single-pass stream of row records, as produced by a row store.
type Rows interface {
	Next() (Row, bool)
	Err() error
	Close() error
}

// sliceRows adapts an in-memory row slice to the Rows stream.
type sliceRows struct {
	rows []Row
	pos  int
}

func RowsFromSlice(rows []Row) Rows {
	return &sliceRows{rows: rows}
}

func (s *sliceRows) Next() (Row, bool) {
	if s.pos >= len(s.rows) {
		return Row{}, false
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true
}

func (s *sliceRows) Err() error   { return nil }
func (s *sliceRows) Close() error { return nil }

// FieldWarning reports one swallowed read-path coercion failure.
type FieldWarning struct {
	Row    int
	Field  string
	Column string
	Err    error
}

// Iter lazily maps row records into values of T, one fresh record per input
// row, in input order. It is single-pass and not restartable.
type Iter[T any] struct {
	td    TableDef
	rows  Rows
	warn  func(FieldWarning)
	count int
}

// MapRows returns a lazy iterator turning rows into records of T. A warn
// callback, when given, receives every per-field coercion failure; without
// one the failures stay silent and the fields keep their zero values either
// way. A row is never dropped because one of its columns fails to convert.
func MapRows[T any](rows Rows, warn func(FieldWarning)) (*Iter[T], error) {
	td, err := TableOf[T]()
	if err != nil {
		return nil, err
	}
	return &Iter[T]{td: td, rows: rows, warn: warn}, nil
}

// Next produces the next mapped record. It returns false once the stream is
// exhausted or failed; check Err afterwards.
func (it *Iter[T]) Next() (T, bool) {
	var rec T
	row, ok := it.rows.Next()
	if !ok {
		return rec, false
	}

	rv := reflect.ValueOf(&rec).Elem()
	for _, fd := range it.td.Fields {
		ci, ok := row.indexFold(fd.Column)
		if !ok {
			continue
		}
		fv := rv.Field(fd.Index)
		if err := coerceField(fd, row.Values[ci], fv); err != nil {
			fv.Set(reflect.Zero(fv.Type()))
			if it.warn != nil {
				it.warn(FieldWarning{Row: it.count, Field: fd.Name, Column: fd.Column, Err: err})
			}
		}
	}

	it.count++
	return rec, true
}

func (it *Iter[T]) Err() error {
	return it.rows.Err()
}

func (it *Iter[T]) Close() error {
	return it.rows.Close()
}

// All drains the iterator into a slice and closes it.
func (it *Iter[T]) All() ([]T, error) {
	defer it.Close()

	var out []T
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, rec)
	}
	if err := it.rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
