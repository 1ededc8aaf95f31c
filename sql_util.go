package dbmap

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// FilterNull filters a column on IS NULL / IS NOT NULL.
type FilterNull interface {
	IsNull() bool
}

type filterNull bool

func (fn filterNull) IsNull() bool {
	return bool(fn)
}

func FilterNullFrom(isNull bool) FilterNull {
	return filterNull(isNull)
}

// FilterStringContains filters a column on a substring match.
type FilterStringContains interface {
	Contains() string
}

type filterStringContains string

func (fs filterStringContains) Contains() string {
	return fmt.Sprintf("%%%s%%", fs)
}

func FilterStringContainsFrom(str string) FilterStringContains {
	return filterStringContains(str)
}

// BuildFilterWhere turns a filter map into a WHERE fragment with named
// parameters. Keys that match no field of the table are dropped. Slice
// values become IN criteria; single-element slices collapse to equality.
// Keys are visited in sorted order so the fragment is deterministic.
func BuildFilterWhere(td TableDef, filterMap map[string]any) (string, ParamBag, error) {
	keys := make([]string, 0, len(filterMap))
	for k := range filterMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var criteria []string
	params := make(ParamBag)

	for _, k := range keys {
		fd, ok := td.FieldByColumn(k)
		if !ok {
			continue
		}

		val := filterMap[k]
		col := fd.Column

		if fnull, ok := val.(FilterNull); ok {
			isNot := ""
			if !fnull.IsNull() {
				isNot = "NOT "
			}
			criteria = append(criteria, fmt.Sprintf("%s IS %sNULL", col, isNot))
			continue
		}

		if fcontain, ok := val.(FilterStringContains); ok {
			criteria = append(criteria, fmt.Sprintf("%s LIKE :%s", col, col))
			params[col] = fcontain.Contains()
			continue
		}

		vval := reflect.ValueOf(val)
		if vval.Kind() != reflect.Slice {
			criteria = append(criteria, fmt.Sprintf("%s = :%s", col, col))
			params[col] = val
			continue
		}

		if vval.Len() == 0 {
			continue
		}
		if vval.Len() == 1 {
			criteria = append(criteria, fmt.Sprintf("%s = :%s", col, col))
			params[col] = vval.Index(0).Interface()
			continue
		}

		criteria = append(criteria, fmt.Sprintf("%s IN (:%s)", col, col))
		params[col] = val
	}

	if len(criteria) == 0 {
		return "", params, nil
	}

	return "WHERE " + strings.Join(criteria, " AND "), params, nil
}

// MakeSortClause builds an ORDER BY body from sort keys of the form
// "field", "+field" or "-field". Keys are snake-cased before the optional
// sortFieldMap lookup rewrites them to real column names.
func MakeSortClause(sorter []string, sortFieldMap map[string]string) string {
	if len(sorter) == 0 {
		return ""
	}

	var srt []string
	for _, s := range sorter {
		if s == "" {
			continue
		}

		op := "ASC"
		field := s
		switch s[:1] {
		case "-":
			op = "DESC"
			field = s[1:]
		case "+":
			field = s[1:]
		}

		field = strcase.ToSnake(strings.TrimSpace(field))
		if sortFieldMap != nil {
			if mf, ok := sortFieldMap[field]; ok {
				field = mf
			}
		}

		srt = append(srt, fmt.Sprintf("%s %s", field, op))
	}

	return strings.Join(srt, ",")
}
