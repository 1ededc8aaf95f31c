package dbmap

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// coerceField converts one untyped scalar from the store into the field
// value dst, a settable reflect.Value of fd's declared type. A nil scalar
// always leaves the field at its zero value. The function never panics past
// its boundary; reflection faults come back as errors for the caller to
// swallow or report.
func coerceField(fd FieldDef, scalar any, dst reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("coerce %s into %s: %v", fd.Column, fd.Type, r)
		}
	}()

	if scalar == nil {
		return nil
	}

	if fd.Nullable {
		if dst.Kind() == reflect.Ptr {
			elem := reflect.New(fd.Base)
			if err := coerceBase(fd, scalar, elem.Elem()); err != nil {
				return err
			}
			dst.Set(elem)
			return nil
		}

		// Null* wrapper struct: coerce to the wrapped type, then hand the
		// result to the wrapper's own Scan.
		tmp := reflect.New(fd.Base).Elem()
		if err := coerceBase(fd, scalar, tmp); err != nil {
			return err
		}
		scanner, ok := dst.Addr().Interface().(sql.Scanner)
		if !ok {
			return fmt.Errorf("coerce %s: %s is not a scannable wrapper", fd.Column, fd.Type)
		}
		return scanner.Scan(tmp.Interface())
	}

	return coerceBase(fd, scalar, dst)
}

func coerceBase(fd FieldDef, scalar any, dst reflect.Value) error {
	switch fd.Category {
	case CategoryEnum:
		um, ok := dst.Addr().Interface().(encoding.TextUnmarshaler)
		if !ok {
			return fmt.Errorf("enum field %s: %s does not implement encoding.TextUnmarshaler", fd.Name, fd.Base)
		}
		return um.UnmarshalText([]byte(stringifyScalar(scalar)))

	case CategoryIdentifier:
		u, err := parseIdentifier(scalar)
		if err != nil {
			return fmt.Errorf("identifier field %s: %w", fd.Name, err)
		}
		dst.Set(reflect.ValueOf(u).Convert(fd.Base))
		return nil

	case CategoryTimestamp:
		t, err := parseTimestamp(scalar)
		if err != nil {
			return fmt.Errorf("timestamp field %s: %w", fd.Name, err)
		}
		dst.Set(reflect.ValueOf(t).Convert(fd.Base))
		return nil

	default:
		v, err := convertScalar(scalar, fd.Base)
		if err != nil {
			return fmt.Errorf("field %s: %w", fd.Name, err)
		}
		dst.Set(v)
		return nil
	}
}

func parseIdentifier(scalar any) (uuid.UUID, error) {
	switch v := scalar.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	default:
		return uuid.Parse(stringifyScalar(scalar))
	}
}

// parseTimestamp accepts a time value as-is, text in a handful of common
// layouts, or a wide integer holding 100ns ticks since 0001-01-01 UTC.
func parseTimestamp(scalar any) (time.Time, error) {
	switch v := scalar.(type) {
	case time.Time:
		return v, nil
	case int64:
		return timeFromTicks(v), nil
	case string:
		return parseTimeText(v)
	case []byte:
		return parseTimeText(string(v))
	default:
		return time.Time{}, fmt.Errorf("cannot interpret %T as timestamp", scalar)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTimeText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

const (
	ticksPerSecond = 10_000_000
	// seconds between 0001-01-01T00:00:00Z and the Unix epoch
	tickEpochOffsetSeconds = 62135596800
)

func timeFromTicks(ticks int64) time.Time {
	secs := ticks/ticksPerSecond - tickEpochOffsetSeconds
	nanos := (ticks % ticksPerSecond) * 100
	return time.Unix(secs, nanos).UTC()
}

func ticksFromTime(t time.Time) int64 {
	return (t.Unix()+tickEpochOffsetSeconds)*ticksPerSecond + int64(t.Nanosecond())/100
}

// convertScalar performs the generic "convert to declared type" coercion for
// plain and integer categories. Narrowing integer conversions truncate.
func convertScalar(scalar any, t reflect.Type) (reflect.Value, error) {
	sv := reflect.ValueOf(scalar)
	out := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.String:
		out.SetString(stringifyScalar(scalar))
		return out, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := scalarToInt64(scalar, sv)
		if err != nil {
			return out, err
		}
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := scalarToInt64(scalar, sv)
		if err != nil {
			return out, err
		}
		out.SetUint(uint64(n))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, err := scalarToFloat64(scalar, sv)
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
		return out, nil

	case reflect.Bool:
		switch {
		case sv.Kind() == reflect.Bool:
			out.SetBool(sv.Bool())
		case sv.CanInt():
			out.SetBool(sv.Int() != 0)
		case sv.CanFloat():
			out.SetBool(sv.Float() != 0)
		default:
			b, err := strconv.ParseBool(stringifyScalar(scalar))
			if err != nil {
				return out, fmt.Errorf("cannot convert %T into bool", scalar)
			}
			out.SetBool(b)
		}
		return out, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			switch v := scalar.(type) {
			case []byte:
				out.SetBytes(append([]byte(nil), v...))
				return out, nil
			case string:
				out.SetBytes([]byte(v))
				return out, nil
			}
		}
	}

	if sv.Type().AssignableTo(t) {
		return sv, nil
	}
	if sv.Type().ConvertibleTo(t) {
		return sv.Convert(t), nil
	}
	return out, fmt.Errorf("cannot convert %T into %s", scalar, t)
}

func scalarToInt64(scalar any, sv reflect.Value) (int64, error) {
	switch {
	case sv.CanInt():
		return sv.Int(), nil
	case sv.CanUint():
		return int64(sv.Uint()), nil
	case sv.CanFloat():
		return int64(sv.Float()), nil
	case sv.Kind() == reflect.Bool:
		if sv.Bool() {
			return 1, nil
		}
		return 0, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(stringifyScalar(scalar)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T into integer", scalar)
	}
	return n, nil
}

func scalarToFloat64(scalar any, sv reflect.Value) (float64, error) {
	switch {
	case sv.CanFloat():
		return sv.Float(), nil
	case sv.CanInt():
		return float64(sv.Int()), nil
	case sv.CanUint():
		return float64(sv.Uint()), nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(stringifyScalar(scalar)), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T into float", scalar)
	}
	return f, nil
}

func stringifyScalar(scalar any) string {
	switch v := scalar.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// scalarOf is the write path: it turns a field value into a scalar the store
// can bind. Identifiers are stringified, null becomes the explicit nil
// sentinel, everything else passes through unchanged. Unlike the read path,
// failures here surface to the caller.
func scalarOf(fd FieldDef, v reflect.Value) (any, error) {
	if fd.Nullable {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return nil, nil
			}
			v = v.Elem()
		} else if valuer, ok := v.Interface().(driver.Valuer); ok {
			val, err := valuer.Value()
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fd.Name, err)
			}
			if val == nil {
				return nil, nil
			}
			if fd.Category == CategoryIdentifier {
				return stringifyScalar(val), nil
			}
			return val, nil
		}
	}

	if fd.Category == CategoryIdentifier && v.Type().ConvertibleTo(typeUUID) {
		return v.Convert(typeUUID).Interface().(uuid.UUID).String(), nil
	}

	return v.Interface(), nil
}
