package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type person struct {
	id   int
	name string
}

func TestNeverAlwaysReportsNonIdentity(t *testing.T) {
	same := Never[person]()
	assert.False(t, same(person{id: 1}, person{id: 1}))
}

func TestByKeyComparesExtractedKey(t *testing.T) {
	same := ByKey(func(p person) int { return p.id })
	assert.True(t, same(person{id: 1, name: "a"}, person{id: 1, name: "b"}))
	assert.False(t, same(person{id: 1}, person{id: 2}))
}

func TestCollatedStringIgnoresCase(t *testing.T) {
	same := CollatedString(func(p person) string { return p.name }, language.English)
	assert.True(t, same(person{name: "Alice"}, person{name: "alice"}))
	assert.False(t, same(person{name: "Alice"}, person{name: "Bob"}))
}

type fakeSchema struct {
	info TableInfo
	err  error
}

func (f fakeSchema) TableInfo(table string) (TableInfo, error) {
	return f.info, f.err
}

type personRow person

func (p personRow) ColumnValue(column string) (any, bool) {
	switch column {
	case "id":
		return p.id, true
	case "name":
		return p.name, true
	default:
		return nil, false
	}
}

func TestByPrimaryKeyComparesPKColumns(t *testing.T) {
	db := fakeSchema{info: TableInfo{
		Name: "people",
		Columns: []ColumnInfo{
			{Name: "id", Primary: true},
			{Name: "name"},
		},
	}}
	same, err := ByPrimaryKey[personRow](db, "people")
	require.NoError(t, err)

	assert.True(t, same(personRow{id: 1, name: "a"}, personRow{id: 1, name: "b"}))
	assert.False(t, same(personRow{id: 1}, personRow{id: 2}))
}

func TestByPrimaryKeyWithNoPrimaryKeyDegradesToNever(t *testing.T) {
	db := fakeSchema{info: TableInfo{Name: "people", Columns: []ColumnInfo{{Name: "id"}}}}
	same, err := ByPrimaryKey[personRow](db, "people")
	require.NoError(t, err)
	assert.False(t, same(personRow{id: 1}, personRow{id: 1}))
}

func TestTableInfoPrimaryKeyColumnsPreservesOrder(t *testing.T) {
	info := TableInfo{Columns: []ColumnInfo{
		{Name: "b", Primary: true},
		{Name: "a"},
		{Name: "c", Primary: true},
	}}
	assert.Equal(t, []string{"b", "c"}, info.PrimaryKeyColumns())
}
