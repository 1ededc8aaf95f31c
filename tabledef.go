package dbmap

import (
	"database/sql"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

// Category classifies a field's declared type for the coercion engine.
type Category int

const (
	CategoryPlain Category = iota
	CategoryEnum
	CategoryIdentifier
	CategoryInteger
	CategoryTimestamp
)

func (c Category) String() string {
	switch c {
	case CategoryEnum:
		return "enum"
	case CategoryIdentifier:
		return "identifier"
	case CategoryInteger:
		return "integer"
	case CategoryTimestamp:
		return "timestamp"
	default:
		return "plain"
	}
}

// FieldDef describes a single mapped field. Column defaults to the field
// name verbatim unless a db tag overrides it.
type FieldDef struct {
	Name     string
	Column   string
	Index    int
	Type     reflect.Type // declared type, wrapper included
	Base     reflect.Type // declared type with one nullable layer removed
	Category Category
	Nullable bool
	IsKey    bool
	IsAuto   bool
	Size     int
}

// TableDef is the static mapping table for a record type: its table name and
// the ordered field set. It is built once per type and reused.
type TableDef struct {
	Schema   string
	Name     string
	KeyField string
	Fields   []FieldDef
}

// Model lets a record type declare its table definition statically instead
// of having it derived from the struct shape.
type Model interface {
	TableDef() TableDef
}

// DBTable is an optional marker field; its schema and name tags override the
// derived schema and table name.
type DBTable struct{}

func (td TableDef) FullTableName() string {
	if td.Schema != "" {
		return td.Schema + "." + td.Name
	}
	return td.Name
}

func (td TableDef) ColumnNames() []string {
	return Map(td.Fields, func(fd FieldDef) string {
		return fd.Column
	})
}

// InsertColumns returns the column names bound on insert, in declaration
// order. Auto-generated fields are excluded.
func (td TableDef) InsertColumns() []string {
	fields := Filter(td.Fields, func(fd FieldDef) bool {
		return !fd.IsAuto
	})
	return Map(fields, func(fd FieldDef) string {
		return fd.Column
	})
}

// Field looks a field up by its exact name.
func (td TableDef) Field(name string) (FieldDef, bool) {
	for _, fd := range td.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return FieldDef{}, false
}

// FieldByColumn looks a field up by column name, exact match preferred.
func (td TableDef) FieldByColumn(col string) (FieldDef, bool) {
	for _, fd := range td.Fields {
		if fd.Column == col {
			return fd, true
		}
	}
	for _, fd := range td.Fields {
		if strings.EqualFold(fd.Column, col) {
			return fd, true
		}
	}
	return FieldDef{}, false
}

// Ref returns a validated selector token for the named field.
func (td TableDef) Ref(name string) (FieldRef, error) {
	if _, ok := td.Field(name); !ok {
		return "", fmt.Errorf("%w: %s has no field %q", ErrInvalidSelector, td.Name, name)
	}
	return FieldRef(name), nil
}

var tableDefCache sync.Map // reflect.Type -> TableDef

// TableOf returns the mapping table for T, deriving and caching it on first
// use. A type implementing Model supplies its own definition.
func TableOf[T any]() (TableDef, error) {
	var entity T
	return tableOfValue(reflect.ValueOf(&entity).Elem())
}

func tableOfValue(mval reflect.Value) (TableDef, error) {
	if mval.Kind() == reflect.Ptr {
		mval = mval.Elem()
	}

	if model, ok := mval.Interface().(Model); ok {
		return model.TableDef(), nil
	}

	mtype := mval.Type()
	if cached, ok := tableDefCache.Load(mtype); ok {
		return cached.(TableDef), nil
	}

	td, err := parseModel(mtype)
	if err != nil {
		return td, err
	}

	tableDefCache.Store(mtype, td)
	return td, nil
}

func parseModel(model reflect.Type) (TableDef, error) {
	if model.Kind() != reflect.Struct {
		return TableDef{}, fmt.Errorf("cannot map %s: record type must be a struct", model)
	}

	td := TableDef{Name: model.Name()}
	keyFound := false

	for i := 0; i < model.NumField(); i++ {
		field := model.Field(i)
		if field.Type == reflect.TypeOf(DBTable{}) {
			td.Schema = field.Tag.Get("schema")
			if name := field.Tag.Get("name"); name != "" {
				td.Name = name
			}
			continue
		}

		if field.PkgPath != "" {
			continue
		}

		name, size, isAuto, isKey, forceEnum, skip := parseDBTag(field.Tag.Get("db"))
		if skip {
			continue
		}
		if name == "" {
			name = field.Name
		}

		if isKey {
			if keyFound {
				return td, fmt.Errorf("%s: cannot have more than 1 key field", model.Name())
			}
			td.KeyField = name
			keyFound = true
		}

		base, nullable := unwrapNullable(field.Type)
		cat := classify(base)
		if forceEnum {
			cat = CategoryEnum
		}

		td.Fields = append(td.Fields, FieldDef{
			Name:     field.Name,
			Column:   name,
			Index:    i,
			Type:     field.Type,
			Base:     base,
			Category: cat,
			Nullable: nullable,
			IsKey:    isKey,
			IsAuto:   isAuto,
			Size:     size,
		})
	}

	if len(td.Fields) == 0 {
		return td, fmt.Errorf("%s: record type has no mappable fields", model.Name())
	}

	return td, nil
}

func parseDBTag(value string) (name string, size int, isAuto, isKey, isEnum, skip bool) {
	if value == "-" {
		skip = true
		return
	}

	tagArr := strings.Split(value, ",")
	name = strings.TrimSpace(tagArr[0])
	for _, part := range tagArr[1:] {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		key := kv[0]
		switch {
		case strings.EqualFold(key, "auto"):
			isAuto = true
		case strings.EqualFold(key, "key"):
			isKey = true
		case strings.EqualFold(key, "enum"):
			isEnum = true
		case strings.EqualFold(key, "size") && len(kv) > 1:
			size, _ = strconv.Atoi(kv[1])
		}
	}

	return
}

var (
	typeTime = reflect.TypeOf(time.Time{})
	typeUUID = reflect.TypeOf(uuid.UUID{})

	typeTextUnmarshaler = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// nullWrapperBases maps a recognized nullability wrapper to the type it wraps.
var nullWrapperBases = map[reflect.Type]reflect.Type{
	reflect.TypeOf(null.String{}):     reflect.TypeOf(""),
	reflect.TypeOf(null.Int{}):        reflect.TypeOf(int64(0)),
	reflect.TypeOf(null.Float{}):      reflect.TypeOf(float64(0)),
	reflect.TypeOf(null.Bool{}):       reflect.TypeOf(false),
	reflect.TypeOf(null.Time{}):       typeTime,
	reflect.TypeOf(sql.NullString{}):  reflect.TypeOf(""),
	reflect.TypeOf(sql.NullInt64{}):   reflect.TypeOf(int64(0)),
	reflect.TypeOf(sql.NullInt32{}):   reflect.TypeOf(int32(0)),
	reflect.TypeOf(sql.NullInt16{}):   reflect.TypeOf(int16(0)),
	reflect.TypeOf(sql.NullFloat64{}): reflect.TypeOf(float64(0)),
	reflect.TypeOf(sql.NullBool{}):    reflect.TypeOf(false),
	reflect.TypeOf(sql.NullTime{}):    typeTime,
}

// unwrapNullable strips a single level of nullable wrapping: a pointer, or
// one of the known Null* wrapper structs.
func unwrapNullable(t reflect.Type) (base reflect.Type, nullable bool) {
	if t.Kind() == reflect.Ptr {
		return t.Elem(), true
	}
	if wrapped, ok := nullWrapperBases[t]; ok {
		return wrapped, true
	}
	return t, false
}

func classify(base reflect.Type) Category {
	switch {
	case base == typeUUID:
		return CategoryIdentifier
	case base == typeTime:
		return CategoryTimestamp
	}

	switch base.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if reflect.PointerTo(base).Implements(typeTextUnmarshaler) {
			return CategoryEnum
		}
		return CategoryInteger
	case reflect.String:
		if reflect.PointerTo(base).Implements(typeTextUnmarshaler) {
			return CategoryEnum
		}
	}

	return CategoryPlain
}
