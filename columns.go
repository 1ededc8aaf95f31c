package dbmap

import (
	"fmt"
	"strings"
)

// FieldRef is a symbolic, typed reference to a record field by name. Use F
// for an unchecked token or TableDef.Ref for a validated one.
type FieldRef string

// F names a record field symbolically. The reference is validated against
// the record's mapping table when it is resolved.
func F(name string) FieldRef {
	return FieldRef(name)
}

// ResolveColumns produces the column list for a SELECT projection.
//
// Selectors win when present: each must reduce to exactly one field of the
// table (a *FieldRef is unwrapped one level); anything else fails with
// ErrInvalidSelector. Otherwise a non-blank rawColumns string is split on
// commas, trimmed, and used verbatim with no validation against the table.
// With neither, the projection is the wildcard "*".
func ResolveColumns(td TableDef, selectors []any, rawColumns string) ([]string, error) {
	if len(selectors) > 0 {
		cols := make([]string, 0, len(selectors))
		for _, sel := range selectors {
			name, err := selectorFieldName(sel)
			if err != nil {
				return nil, err
			}
			fd, ok := td.Field(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidSelector, td.Name, name)
			}
			cols = append(cols, fd.Column)
		}
		return cols, nil
	}

	if strings.TrimSpace(rawColumns) != "" {
		parts := strings.Split(rawColumns, ",")
		return Map(parts, strings.TrimSpace), nil
	}

	return []string{"*"}, nil
}

func selectorFieldName(sel any) (string, error) {
	switch s := sel.(type) {
	case FieldRef:
		return string(s), nil
	case *FieldRef:
		if s == nil {
			return "", fmt.Errorf("%w: nil field reference", ErrInvalidSelector)
		}
		return string(*s), nil
	default:
		return "", fmt.Errorf("%w: %T is not a field reference", ErrInvalidSelector, sel)
	}
}
