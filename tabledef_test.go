package dbmap

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestTableOf_Employee(t *testing.T) {
	td, err := TableOf[Employee]()
	require.NoError(t, err)

	assert.Equal(t, "Employee", td.Name)
	assert.Equal(t, "Employee", td.FullTableName())
	assert.Equal(t, "Id", td.KeyField)
	assert.Equal(t,
		[]string{"Id", "Name", "Age", "Status", "Note", "Salary", "Created"},
		td.ColumnNames())

	cases := []struct {
		field    string
		category Category
		nullable bool
	}{
		{"Id", CategoryIdentifier, false},
		{"Name", CategoryPlain, false},
		{"Age", CategoryInteger, false},
		{"Status", CategoryEnum, false},
		{"Note", CategoryPlain, true},
		{"Salary", CategoryPlain, false},
		{"Created", CategoryTimestamp, false},
	}
	for _, tc := range cases {
		fd, ok := td.Field(tc.field)
		require.True(t, ok, tc.field)
		assert.Equal(t, tc.category, fd.Category, tc.field)
		assert.Equal(t, tc.nullable, fd.Nullable, tc.field)
	}
}

func TestTableOf_TagOverridesAndAuto(t *testing.T) {
	type Ledger struct {
		DBTable   `schema:"audit" name:"LedgerEntries"`
		Seq       int64  `db:"Seq,key,auto"`
		Reference string `db:"Ref,size=64"`
		Secret    string `db:"-"`
		hidden    string
	}
	td, err := TableOf[Ledger]()
	require.NoError(t, err)

	assert.Equal(t, "LedgerEntries", td.Name)
	assert.Equal(t, "audit.LedgerEntries", td.FullTableName())
	assert.Equal(t, "Seq", td.KeyField)
	assert.Equal(t, []string{"Seq", "Ref"}, td.ColumnNames())
	assert.Equal(t, []string{"Ref"}, td.InsertColumns())

	fd, ok := td.Field("Reference")
	require.True(t, ok)
	assert.Equal(t, "Ref", fd.Column)
	assert.Equal(t, 64, fd.Size)
	assert.False(t, fd.IsAuto)

	seq, ok := td.Field("Seq")
	require.True(t, ok)
	assert.True(t, seq.IsAuto)
	assert.True(t, seq.IsKey)
}

func TestTableOf_ModelDeclaration(t *testing.T) {
	td, err := TableOf[declaredRecord]()
	require.NoError(t, err)
	assert.Equal(t, "Declared", td.Name)
	assert.Equal(t, "Code", td.KeyField)
}

type declaredRecord struct {
	Code string
}

func (declaredRecord) TableDef() TableDef {
	return TableDef{
		Name:     "Declared",
		KeyField: "Code",
		Fields: []FieldDef{
			{Name: "Code", Column: "Code", Index: 0, Category: CategoryPlain},
		},
	}
}

func TestTableOf_Cached(t *testing.T) {
	first, err := TableOf[Employee]()
	require.NoError(t, err)
	second, err := TableOf[Employee]()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnwrapNullable(t *testing.T) {
	base, nullable := unwrapNullable(typeOf[*int32]())
	assert.True(t, nullable)
	assert.Equal(t, typeOf[int32](), base)

	base, nullable = unwrapNullable(typeOf[null.Time]())
	assert.True(t, nullable)
	assert.Equal(t, typeOf[time.Time](), base)

	base, nullable = unwrapNullable(typeOf[uuid.UUID]())
	assert.False(t, nullable)
	assert.Equal(t, typeOf[uuid.UUID](), base)
}

func TestTableDef_Ref(t *testing.T) {
	td := mustTableOf[Employee]()

	ref, err := td.Ref("Age")
	require.NoError(t, err)
	assert.Equal(t, FieldRef("Age"), ref)

	_, err = td.Ref("Ages")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}
