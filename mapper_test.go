package dbmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employeeRow(cols []string, vals []any) Row {
	return Row{Columns: cols, Values: vals}
}

func TestMapRows_OneRecordPerRowInOrder(t *testing.T) {
	rows := RowsFromSlice([]Row{
		employeeRow([]string{"Name", "Age"}, []any{"ana", int64(30)}),
		employeeRow([]string{"Name", "Age"}, []any{"bob", int64(41)}),
	})

	it, err := MapRows[Employee](rows, nil)
	require.NoError(t, err)

	out, err := it.All()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "ana", out[0].Name)
	assert.Equal(t, int32(30), out[0].Age)
	assert.Equal(t, "bob", out[1].Name)
	assert.Equal(t, int32(41), out[1].Age)
}

func TestMapRows_CaseInsensitiveFirstMatch(t *testing.T) {
	rows := RowsFromSlice([]Row{
		employeeRow([]string{"NAME", "age"}, []any{"ana", int64(30)}),
	})

	it, err := MapRows[Employee](rows, nil)
	require.NoError(t, err)
	out, err := it.All()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ana", out[0].Name)
	assert.Equal(t, int32(30), out[0].Age)
}

func TestMapRows_ColumnCollisionFirstWins(t *testing.T) {
	rows := RowsFromSlice([]Row{
		employeeRow([]string{"name", "NAME"}, []any{"first", "second"}),
	})

	it, err := MapRows[Employee](rows, nil)
	require.NoError(t, err)
	out, err := it.All()
	require.NoError(t, err)
	assert.Equal(t, "first", out[0].Name)
}

func TestMapRows_UnmatchedColumnDroppedMissingFieldZero(t *testing.T) {
	rows := RowsFromSlice([]Row{
		employeeRow([]string{"Name", "Shoe"}, []any{"ana", int64(44)}),
	})

	it, err := MapRows[Employee](rows, nil)
	require.NoError(t, err)
	out, err := it.All()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ana", out[0].Name)
	assert.Zero(t, out[0].Age)
	assert.Zero(t, out[0].Status)
}

func TestMapRows_BadFieldDoesNotLoseRow(t *testing.T) {
	emp := testEmployee()
	rows := RowsFromSlice([]Row{
		employeeRow(
			[]string{"Id", "Age", "Status", "Created"},
			[]any{emp.Id.String(), int64(30), "not-a-status", "2024-01-01 00:00:00"},
		),
	})

	var warnings []FieldWarning
	it, err := MapRows[Employee](rows, func(w FieldWarning) {
		warnings = append(warnings, w)
	})
	require.NoError(t, err)

	out, err := it.All()
	require.NoError(t, err)
	require.Len(t, out, 1, "a malformed value must never drop the row")

	assert.Equal(t, emp.Id, out[0].Id)
	assert.Equal(t, int32(30), out[0].Age)
	assert.True(t, out[0].Created.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Zero(t, out[0].Status, "unparseable enum stays at default")

	require.Len(t, warnings, 1)
	assert.Equal(t, "Status", warnings[0].Field)
	assert.Equal(t, 0, warnings[0].Row)
	assert.Error(t, warnings[0].Err)
}

func TestMapRows_SilentByDefault(t *testing.T) {
	rows := RowsFromSlice([]Row{
		employeeRow([]string{"Status"}, []any{"not-a-status"}),
	})

	it, err := MapRows[Employee](rows, nil)
	require.NoError(t, err)
	out, err := it.All()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].Status)
}

func TestMapRows_Lazy(t *testing.T) {
	rows := RowsFromSlice([]Row{
		employeeRow([]string{"Name"}, []any{"ana"}),
		employeeRow([]string{"Name"}, []any{"bob"}),
	})

	it, err := MapRows[Employee](rows, nil)
	require.NoError(t, err)

	first, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "ana", first.Name)

	second, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "bob", second.Name)

	_, ok = it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err())
	assert.NoError(t, it.Close())
}

func TestRowGet(t *testing.T) {
	row := employeeRow([]string{"Id", "id"}, []any{int64(1), int64(2)})

	v, ok := row.Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	_, ok = row.Get("ID")
	assert.False(t, ok, "Get is case-sensitive")

	i, ok := row.indexFold("ID")
	require.True(t, ok)
	assert.Equal(t, 0, i, "fold matching picks the first column")
}
