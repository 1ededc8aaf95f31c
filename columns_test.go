package dbmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns_Selectors(t *testing.T) {
	td := mustTableOf[Employee]()

	cols, err := ResolveColumns(td, []any{F("Name"), F("Age")}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Age"}, cols)

	// a boxed reference still resolves
	ref := F("Status")
	cols, err = ResolveColumns(td, []any{&ref}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Status"}, cols)
}

func TestResolveColumns_SelectorsWinOverRaw(t *testing.T) {
	td := mustTableOf[Employee]()

	cols, err := ResolveColumns(td, []any{F("Name")}, "Age, Salary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, cols)
}

func TestResolveColumns_InvalidSelector(t *testing.T) {
	td := mustTableOf[Employee]()

	_, err := ResolveColumns(td, []any{F("NoSuchField")}, "")
	assert.ErrorIs(t, err, ErrInvalidSelector)

	_, err = ResolveColumns(td, []any{42}, "")
	assert.ErrorIs(t, err, ErrInvalidSelector)

	_, err = ResolveColumns(td, []any{(*FieldRef)(nil)}, "")
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestResolveColumns_RawCSV(t *testing.T) {
	td := mustTableOf[Employee]()

	// split, trimmed, used verbatim with no existence check
	cols, err := ResolveColumns(td, nil, " Name , count(*) AS n ,Age")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "count(*) AS n", "Age"}, cols)
}

func TestResolveColumns_Wildcard(t *testing.T) {
	td := mustTableOf[Employee]()

	cols, err := ResolveColumns(td, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cols)

	cols, err = ResolveColumns(td, nil, "   ")
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cols)
}
