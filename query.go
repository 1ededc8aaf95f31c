package dbmap

import (
	"fmt"
	"reflect"
	"strings"
)

// ParamBag is a named set of scalar values bound into a statement. A nil
// value binds SQL NULL; an absent key leaves the parameter unbound.
type ParamBag map[string]any

// Merge copies params from other without overwriting existing keys.
func (pb ParamBag) Merge(other ParamBag) ParamBag {
	for k, v := range other {
		if _, ok := pb[k]; !ok {
			pb[k] = v
		}
	}
	return pb
}

// BuildInsert synthesizes an INSERT statement and its parameter bag from a
// record value. The column set is overrideColumns (comma-split, trimmed)
// when non-blank, otherwise every insertable column of the table in
// declaration order. Each column gets one :name placeholder; parameters are
// keyed by column name and filled through the write-path coercion. Extra
// parameters are merged in last and never replace a field-derived value.
func BuildInsert(td TableDef, value any, overrideColumns string, extra ParamBag) (string, ParamBag, error) {
	cols := td.InsertColumns()
	if strings.TrimSpace(overrideColumns) != "" {
		cols = Map(strings.Split(overrideColumns, ","), strings.TrimSpace)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no columns to bind", td.Name)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	bag := make(ParamBag, len(cols))
	for _, col := range cols {
		fd, ok := td.FieldByColumn(col)
		if !ok {
			// Unknown columns stay unbound; the caller supplies them as
			// extra parameters.
			continue
		}
		scalar, err := scalarOf(fd, rv.Field(fd.Index))
		if err != nil {
			return "", nil, err
		}
		bag[col] = scalar
	}
	bag.Merge(extra)

	placeholders := Map(cols, func(col string) string {
		return ":" + col
	})

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		td.FullTableName(),
		strings.Join(cols, ","),
		strings.Join(placeholders, ","))

	return sql, bag, nil
}

// BuildSelect synthesizes a SELECT statement. A non-blank whereClause is
// appended verbatim after a single space, its own leading whitespace
// stripped; the caller owns its validity. A positive limit caps the row
// count, anything else leaves the query unbounded.
func BuildSelect(td TableDef, columns []string, whereClause string, limit int) string {
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	qry := strings.Builder{}
	fmt.Fprintf(&qry, "SELECT %s FROM %s", strings.Join(columns, ","), td.FullTableName())

	if clause := strings.TrimLeft(whereClause, " \t\r\n"); clause != "" {
		qry.WriteString(" ")
		qry.WriteString(clause)
	}

	if limit > 0 {
		fmt.Fprintf(&qry, " LIMIT %d", limit)
	}

	return qry.String()
}

// limitOffsetSQL builds the paging suffix shared by the sqlite and postgres
// flavors. Non-positive values emit nothing.
func limitOffsetSQL(limit int, offset int64) string {
	qry := strings.Builder{}
	if limit > 0 {
		fmt.Fprintf(&qry, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&qry, " OFFSET %d", offset)
	}
	return qry.String()
}
